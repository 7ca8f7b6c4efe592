// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestCatalogMembership(t *testing.T) {
	tests := []struct {
		activityType ActivityType
		valid        bool
	}{
		{ActivityLogin, true},
		{ActivityPageView, true},
		{ActivityCourseView, true},
		{ActivityLessonView, true},
		{ActivityDocumentDownload, true},
		{ActivityCustom, true},
		{ActivityType("VIDEO_REWIND"), false},
		{ActivityType(""), false},
		{ActivityType("login"), false}, // case sensitive
	}

	for _, tt := range tests {
		if got := tt.activityType.Valid(); got != tt.valid {
			t.Errorf("Valid(%q) = %v, want %v", tt.activityType, got, tt.valid)
		}
	}
}

func TestCatalogTemplatesWellFormed(t *testing.T) {
	// Every catalog entry must have a resource class; templates are optional
	// but when present must be usable as either a plain phrase or a single
	// %s format.
	for activityType, traits := range Catalog {
		if traits.Resource == "" {
			t.Errorf("%s has empty resource class", activityType)
		}
	}
}

func TestCourseActivityTypesAreCatalogMembers(t *testing.T) {
	for _, activityType := range CourseActivityTypes {
		if !activityType.Valid() {
			t.Errorf("course activity type %s missing from catalog", activityType)
		}
		if activityType.Resource() == ResourceOther {
			t.Errorf("course activity type %s maps to OTHER resource", activityType)
		}
	}
}

func TestResourceMapping(t *testing.T) {
	tests := []struct {
		activityType ActivityType
		want         ResourceType
	}{
		{ActivityCourseView, ResourceCourse},
		{ActivityCourseUnenroll, ResourceCourse},
		{ActivitySectionComplete, ResourceSection},
		{ActivityLessonView, ResourceModule},
		{ActivityModuleComplete, ResourceModule},
		{ActivityQuizSubmit, ResourceQuiz},
		{ActivityAssignmentGradeView, ResourceAssignment},
		{ActivityVideoSeek, ResourceVideo},
		{ActivityDocumentView, ResourceDocument},
		{ActivityDiscussionReply, ResourceDiscussion},
		{ActivityPageView, ResourceOther},
		{ActivityCourseProgress, ResourceOther},
		{ActivityType("BOGUS"), ResourceOther},
	}

	for _, tt := range tests {
		if got := tt.activityType.Resource(); got != tt.want {
			t.Errorf("Resource(%s) = %s, want %s", tt.activityType, got, tt.want)
		}
	}
}

func TestCivilTimeUnmarshal(t *testing.T) {
	var ct CivilTime
	if err := json.Unmarshal([]byte(`"2026-03-15T10:30:00"`), &ct); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")
	got := ct.In(hcm)
	want := time.Date(2026, 3, 15, 10, 30, 0, 0, hcm)
	if !got.Equal(want) {
		t.Errorf("anchored time = %v, want %v", got, want)
	}

	// UTC conversion: 10:30 ICT == 03:30 UTC.
	if utc := got.UTC(); utc.Hour() != 3 || utc.Minute() != 30 {
		t.Errorf("expected 03:30 UTC, got %v", utc)
	}
}

func TestCivilTimeUnmarshalFractionalSeconds(t *testing.T) {
	var ct CivilTime
	if err := json.Unmarshal([]byte(`"2026-03-15T10:30:00.123"`), &ct); err != nil {
		t.Fatalf("unmarshal with fraction failed: %v", err)
	}
	if ct.IsZero() {
		t.Error("expected non-zero civil time")
	}
}

func TestCivilTimeUnmarshalRejectsGarbage(t *testing.T) {
	var ct CivilTime
	if err := json.Unmarshal([]byte(`"15/03/2026"`), &ct); err == nil {
		t.Error("expected error for non-ISO input")
	}
}

func TestCivilTimeNullAndEmpty(t *testing.T) {
	for _, input := range []string{`null`, `""`} {
		var ct CivilTime
		if err := json.Unmarshal([]byte(input), &ct); err != nil {
			t.Errorf("unmarshal %s failed: %v", input, err)
		}
		if !ct.IsZero() {
			t.Errorf("expected zero civil time for %s", input)
		}
	}
}

func TestFormatActivityTitle(t *testing.T) {
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")
	ts := time.Date(2026, 8, 28, 10, 30, 0, 0, hcm)

	tests := []struct {
		name         string
		activityType ActivityType
		resourceName string
		localTime    time.Time
		want         string
	}{
		{
			name:         "course view with time",
			activityType: ActivityCourseView,
			resourceName: "Lập trình Go",
			localTime:    ts,
			want:         `Truy cập khóa học "Lập trình Go" vào lúc 10:30 ngày 28/08/2026`,
		},
		{
			name:         "login has no resource name",
			activityType: ActivityLogin,
			resourceName: "ignored",
			localTime:    ts,
			want:         "Đăng nhập hệ thống vào lúc 10:30 ngày 28/08/2026",
		},
		{
			name:         "quiz submit",
			activityType: ActivityQuizSubmit,
			resourceName: "Kiểm tra giữa kỳ",
			localTime:    ts,
			want:         `Nộp bài kiểm tra "Kiểm tra giữa kỳ" vào lúc 10:30 ngày 28/08/2026`,
		},
		{
			name:         "zero time omits suffix",
			activityType: ActivityPageView,
			resourceName: "Trang chủ",
			localTime:    time.Time{},
			want:         `Truy cập trang "Trang chủ"`,
		},
		{
			name:         "untemplated type falls back",
			activityType: ActivitySearch,
			resourceName: "Không xác định",
			localTime:    time.Time{},
			want:         "Hoạt động: SEARCH - Không xác định",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatActivityTitle(tt.activityType, tt.resourceName, tt.localTime); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCourseActivityFromRecord(t *testing.T) {
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")
	actorID := int64(42)

	rec := &ActivityRecord{
		ID: "rec-1",
		ActivityEvent: ActivityEvent{
			ActorID:      &actorID,
			ActivityType: ActivityModuleView,
			PageTitle:    "Bài 3",
			Metadata: map[string]interface{}{
				"moduleName": "Con trỏ và slice",
				"moduleId":   float64(7),
				"courseId":   "12",
			},
			// 03:30 UTC == 10:30 ICT
			Timestamp: time.Date(2026, 8, 28, 3, 30, 0, 0, time.UTC),
		},
	}

	got := CourseActivityFromRecord(rec, hcm)

	if got.ResourceType != ResourceModule {
		t.Errorf("resource type = %s, want MODULE", got.ResourceType)
	}
	// moduleName beats pageTitle.
	if got.ResourceName != "Con trỏ và slice" {
		t.Errorf("resource name = %q", got.ResourceName)
	}
	// courseId has priority over moduleId for the resource ID.
	if got.ResourceID == nil || *got.ResourceID != 12 {
		t.Errorf("resource ID = %v, want 12", got.ResourceID)
	}
	if got.TimestampFormatted != "10:30 ngày 28/08/2026" {
		t.Errorf("formatted timestamp = %q", got.TimestampFormatted)
	}
	if got.FormattedTitle != `Xem bài học "Con trỏ và slice" vào lúc 10:30 ngày 28/08/2026` {
		t.Errorf("formatted title = %q", got.FormattedTitle)
	}
}

func TestCourseActivityResourceNameFallbacks(t *testing.T) {
	hcm := mustLocation(t, "Asia/Ho_Chi_Minh")

	rec := &ActivityRecord{
		ID: "rec-2",
		ActivityEvent: ActivityEvent{
			ActivityType: ActivityCourseView,
			PageTitle:    "Trang khóa học",
			Timestamp:    time.Now().UTC(),
		},
	}
	if got := CourseActivityFromRecord(rec, hcm); got.ResourceName != "Trang khóa học" {
		t.Errorf("expected page title fallback, got %q", got.ResourceName)
	}

	rec.PageTitle = ""
	if got := CourseActivityFromRecord(rec, hcm); got.ResourceName != "Không xác định" {
		t.Errorf("expected unknown placeholder, got %q", got.ResourceName)
	}
}

func TestEventCourseID(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     *int64
	}{
		{"numeric", map[string]interface{}{"courseId": float64(5)}, ptrInt64(5)},
		{"string", map[string]interface{}{"courseId": "17"}, ptrInt64(17)},
		{"non-numeric string", map[string]interface{}{"courseId": "abc"}, nil},
		{"absent", map[string]interface{}{"other": 1}, nil},
		{"nil metadata", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ActivityEvent{Metadata: tt.metadata}
			got := e.CourseID()
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("CourseID() = nil, want %d", *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("CourseID() = %d, want nil", *got)
			case got != nil && tt.want != nil && *got != *tt.want:
				t.Errorf("CourseID() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestAckFor(t *testing.T) {
	actorID := int64(9)
	e := &ActivityEvent{
		ActorID:      &actorID,
		SessionID:    "sess-1",
		ActivityType: ActivityPageView,
		PageURL:      "/courses/12",
		Timestamp:    time.Now().UTC(),
	}

	ack := AckFor(e)
	if ack.Status != AckPending {
		t.Errorf("status = %q, want %q", ack.Status, AckPending)
	}
	if ack.SessionID != "sess-1" || ack.ActivityType != ActivityPageView {
		t.Errorf("ack did not echo event fields: %+v", ack)
	}
}

func ptrInt64(v int64) *int64 { return &v }
