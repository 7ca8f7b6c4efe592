// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

// ActivityType is the closed catalog of trackable user activities. Events
// carrying a type outside this catalog are rejected at the ingest gateway.
type ActivityType string

const (
	// Authentication
	ActivityLogin         ActivityType = "LOGIN"
	ActivityLogout        ActivityType = "LOGOUT"
	ActivityLoginFailed   ActivityType = "LOGIN_FAILED"
	ActivityPasswordReset ActivityType = "PASSWORD_RESET"

	// Navigation
	ActivityPageView  ActivityType = "PAGE_VIEW"
	ActivityPageLeave ActivityType = "PAGE_LEAVE"

	// User interactions
	ActivityButtonClick ActivityType = "BUTTON_CLICK"
	ActivityLinkClick   ActivityType = "LINK_CLICK"
	ActivityFormSubmit  ActivityType = "FORM_SUBMIT"
	ActivityFormError   ActivityType = "FORM_ERROR"

	// API calls
	ActivityAPIRequest ActivityType = "API_REQUEST"
	ActivityAPIError   ActivityType = "API_ERROR"

	// Profile
	ActivityProfileView   ActivityType = "PROFILE_VIEW"
	ActivityProfileUpdate ActivityType = "PROFILE_UPDATE"
	ActivityAvatarUpload  ActivityType = "AVATAR_UPLOAD"

	// Search and filtering
	ActivitySearch ActivityType = "SEARCH"
	ActivityFilter ActivityType = "FILTER"
	ActivitySort   ActivityType = "SORT"

	// Content
	ActivityContentView     ActivityType = "CONTENT_VIEW"
	ActivityContentDownload ActivityType = "CONTENT_DOWNLOAD"
	ActivityContentUpload   ActivityType = "CONTENT_UPLOAD"

	// Session lifecycle
	ActivitySessionStart   ActivityType = "SESSION_START"
	ActivitySessionEnd     ActivityType = "SESSION_END"
	ActivitySessionTimeout ActivityType = "SESSION_TIMEOUT"

	// Errors
	ActivityError ActivityType = "ERROR"
	ActivityCrash ActivityType = "CRASH"

	// Courses
	ActivityCourseView     ActivityType = "COURSE_VIEW"
	ActivityCourseEnroll   ActivityType = "COURSE_ENROLL"
	ActivityCourseUnenroll ActivityType = "COURSE_UNENROLL"
	ActivityCourseComplete ActivityType = "COURSE_COMPLETE"
	ActivityCourseProgress ActivityType = "COURSE_PROGRESS"

	// Sections, lessons, and modules
	ActivitySectionView     ActivityType = "SECTION_VIEW"
	ActivitySectionComplete ActivityType = "SECTION_COMPLETE"
	ActivityLessonView      ActivityType = "LESSON_VIEW"
	ActivityModuleView      ActivityType = "MODULE_VIEW"
	ActivityModuleComplete  ActivityType = "MODULE_COMPLETE"

	// Assignments
	ActivityAssignmentView      ActivityType = "ASSIGNMENT_VIEW"
	ActivityAssignmentStart     ActivityType = "ASSIGNMENT_START"
	ActivityAssignmentSubmit    ActivityType = "ASSIGNMENT_SUBMIT"
	ActivityAssignmentGradeView ActivityType = "ASSIGNMENT_GRADE_VIEW"

	// Quizzes
	ActivityQuizView       ActivityType = "QUIZ_VIEW"
	ActivityQuizStart      ActivityType = "QUIZ_START"
	ActivityQuizAnswer     ActivityType = "QUIZ_ANSWER"
	ActivityQuizSubmit     ActivityType = "QUIZ_SUBMIT"
	ActivityQuizResultView ActivityType = "QUIZ_RESULT_VIEW"

	// Videos
	ActivityVideoPlay     ActivityType = "VIDEO_PLAY"
	ActivityVideoPause    ActivityType = "VIDEO_PAUSE"
	ActivityVideoComplete ActivityType = "VIDEO_COMPLETE"
	ActivityVideoSeek     ActivityType = "VIDEO_SEEK"

	// Documents
	ActivityDocumentView     ActivityType = "DOCUMENT_VIEW"
	ActivityDocumentDownload ActivityType = "DOCUMENT_DOWNLOAD"

	// Discussions
	ActivityDiscussionView  ActivityType = "DISCUSSION_VIEW"
	ActivityDiscussionPost  ActivityType = "DISCUSSION_POST"
	ActivityDiscussionReply ActivityType = "DISCUSSION_REPLY"

	// Notifications
	ActivityNotificationView  ActivityType = "NOTIFICATION_VIEW"
	ActivityNotificationClick ActivityType = "NOTIFICATION_CLICK"

	// Custom
	ActivityCustom ActivityType = "CUSTOM"
)

// ResourceType classifies the learning resource an activity touches.
type ResourceType string

const (
	ResourceCourse     ResourceType = "COURSE"
	ResourceSection    ResourceType = "SECTION"
	ResourceModule     ResourceType = "MODULE"
	ResourceQuiz       ResourceType = "QUIZ"
	ResourceAssignment ResourceType = "ASSIGNMENT"
	ResourceVideo      ResourceType = "VIDEO"
	ResourceDocument   ResourceType = "DOCUMENT"
	ResourceDiscussion ResourceType = "DISCUSSION"
	ResourceOther      ResourceType = "OTHER"
)

// ActivityTraits describes one catalog entry: the resource class the type
// touches and the Vietnamese phrase template for feed titles. A template
// containing %s is filled with the resource name; a template without %s is
// used verbatim (e.g. login/logout). An empty template falls back to the
// generic "Hoạt động: TYPE - name" phrasing.
type ActivityTraits struct {
	Resource ResourceType
	Template string
}

// Catalog is the single source of truth for the activity type set.
// Validation, resource-class mapping, and feed localization all read this
// table; adding a type means adding exactly one entry here.
var Catalog = map[ActivityType]ActivityTraits{
	ActivityLogin:         {ResourceOther, "Đăng nhập hệ thống"},
	ActivityLogout:        {ResourceOther, "Đăng xuất hệ thống"},
	ActivityLoginFailed:   {ResourceOther, ""},
	ActivityPasswordReset: {ResourceOther, ""},

	ActivityPageView:  {ResourceOther, `Truy cập trang "%s"`},
	ActivityPageLeave: {ResourceOther, ""},

	ActivityButtonClick: {ResourceOther, ""},
	ActivityLinkClick:   {ResourceOther, ""},
	ActivityFormSubmit:  {ResourceOther, ""},
	ActivityFormError:   {ResourceOther, ""},

	ActivityAPIRequest: {ResourceOther, ""},
	ActivityAPIError:   {ResourceOther, ""},

	ActivityProfileView:   {ResourceOther, ""},
	ActivityProfileUpdate: {ResourceOther, ""},
	ActivityAvatarUpload:  {ResourceOther, ""},

	ActivitySearch: {ResourceOther, ""},
	ActivityFilter: {ResourceOther, ""},
	ActivitySort:   {ResourceOther, ""},

	ActivityContentView:     {ResourceOther, ""},
	ActivityContentDownload: {ResourceOther, ""},
	ActivityContentUpload:   {ResourceOther, ""},

	ActivitySessionStart:   {ResourceOther, ""},
	ActivitySessionEnd:     {ResourceOther, ""},
	ActivitySessionTimeout: {ResourceOther, ""},

	ActivityError: {ResourceOther, ""},
	ActivityCrash: {ResourceOther, ""},

	ActivityCourseView:     {ResourceCourse, `Truy cập khóa học "%s"`},
	ActivityCourseEnroll:   {ResourceCourse, `Đăng ký khóa học "%s"`},
	ActivityCourseUnenroll: {ResourceCourse, `Hủy đăng ký khóa học "%s"`},
	ActivityCourseComplete: {ResourceCourse, `Hoàn thành khóa học "%s"`},
	ActivityCourseProgress: {ResourceOther, ""},

	ActivitySectionView:     {ResourceSection, `Xem chương "%s"`},
	ActivitySectionComplete: {ResourceSection, `Hoàn thành chương "%s"`},
	ActivityLessonView:      {ResourceModule, `Xem bài học "%s"`},
	ActivityModuleView:      {ResourceModule, `Xem bài học "%s"`},
	ActivityModuleComplete:  {ResourceModule, `Hoàn thành bài học "%s"`},

	ActivityAssignmentView:      {ResourceAssignment, `Xem bài tập "%s"`},
	ActivityAssignmentStart:     {ResourceAssignment, `Bắt đầu làm bài tập "%s"`},
	ActivityAssignmentSubmit:    {ResourceAssignment, `Nộp bài tập "%s"`},
	ActivityAssignmentGradeView: {ResourceAssignment, `Xem điểm bài tập "%s"`},

	ActivityQuizView:       {ResourceQuiz, `Xem bài kiểm tra "%s"`},
	ActivityQuizStart:      {ResourceQuiz, `Bắt đầu làm bài kiểm tra "%s"`},
	ActivityQuizAnswer:     {ResourceQuiz, `Trả lời câu hỏi trong "%s"`},
	ActivityQuizSubmit:     {ResourceQuiz, `Nộp bài kiểm tra "%s"`},
	ActivityQuizResultView: {ResourceQuiz, `Xem kết quả bài kiểm tra "%s"`},

	ActivityVideoPlay:     {ResourceVideo, `Xem video "%s"`},
	ActivityVideoPause:    {ResourceVideo, `Tạm dừng video "%s"`},
	ActivityVideoComplete: {ResourceVideo, `Hoàn thành xem video "%s"`},
	ActivityVideoSeek:     {ResourceVideo, `Tua video "%s"`},

	ActivityDocumentView:     {ResourceDocument, `Xem tài liệu "%s"`},
	ActivityDocumentDownload: {ResourceDocument, `Tải tài liệu "%s"`},

	ActivityDiscussionView:  {ResourceDiscussion, `Xem thảo luận "%s"`},
	ActivityDiscussionPost:  {ResourceDiscussion, `Đăng bài thảo luận trong "%s"`},
	ActivityDiscussionReply: {ResourceDiscussion, `Trả lời thảo luận trong "%s"`},

	ActivityNotificationView:  {ResourceOther, ""},
	ActivityNotificationClick: {ResourceOther, ""},

	ActivityCustom: {ResourceOther, ""},
}

// Valid reports whether t is a member of the activity type catalog.
func (t ActivityType) Valid() bool {
	_, ok := Catalog[t]
	return ok
}

// Resource maps an activity type to the resource class it touches.
// Unknown types map to OTHER.
func (t ActivityType) Resource() ResourceType {
	if traits, ok := Catalog[t]; ok {
		return traits.Resource
	}
	return ResourceOther
}

// CourseActivityTypes lists the activity types that count as course
// engagement. Course feed queries filter to this set so navigation noise
// (page views, clicks) never shows up in instructor-facing feeds.
var CourseActivityTypes = []ActivityType{
	ActivityCourseView, ActivityCourseEnroll, ActivityCourseComplete,
	ActivitySectionView, ActivitySectionComplete,
	ActivityLessonView, ActivityModuleView, ActivityModuleComplete,
	ActivityQuizView, ActivityQuizStart, ActivityQuizAnswer, ActivityQuizSubmit, ActivityQuizResultView,
	ActivityAssignmentView, ActivityAssignmentStart, ActivityAssignmentSubmit, ActivityAssignmentGradeView,
	ActivityVideoPlay, ActivityVideoPause, ActivityVideoComplete, ActivityVideoSeek,
	ActivityDocumentView, ActivityDocumentDownload,
	ActivityDiscussionView, ActivityDiscussionPost, ActivityDiscussionReply,
}
