// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

import (
	"fmt"
	"strings"
	"time"
)

// vietnameseTimeLayout renders timestamps the way the platform's Vietnamese
// UI shows them, e.g. "10:30 ngày 28/08/2026".
const vietnameseTimeLayout = "15:04 ngày 02/01/2006"

// unknownResourceName is the placeholder when neither metadata nor page
// title identifies the resource.
const unknownResourceName = "Không xác định"

// resourceNameKeys is the metadata lookup order for the resource display
// name. The most specific resource kind wins.
var resourceNameKeys = []string{
	"courseName", "sectionName", "moduleName", "quizName",
	"assignmentName", "videoTitle", "resourceName",
}

// resourceIDKeys is the metadata lookup order for the numeric resource ID.
var resourceIDKeys = []string{
	"courseId", "sectionId", "moduleId", "quizId", "assignmentId", "resourceId",
}

// CourseActivity is the localized, instructor-facing view of one activity
// record within a course feed. Timestamps are rendered in the presentation
// zone; FormattedTitle is a ready-to-display Vietnamese phrase.
type CourseActivity struct {
	ID                 string                 `json:"id"`
	ActorID            *int64                 `json:"actorId,omitempty"`
	ActivityType       ActivityType           `json:"activityType"`
	Action             string                 `json:"action,omitempty"`
	FormattedTitle     string                 `json:"formattedTitle"`
	ResourceType       ResourceType           `json:"resourceType"`
	ResourceName       string                 `json:"resourceName"`
	ResourceID         *int64                 `json:"resourceId,omitempty"`
	PageURL            string                 `json:"pageUrl,omitempty"`
	Timestamp          time.Time              `json:"timestamp"`
	TimestampFormatted string                 `json:"timestampFormatted"`
	DurationMS         *int64                 `json:"durationMs,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// CourseActivityFromRecord derives the localized feed entry for a stored
// activity. loc is the presentation zone (Asia/Ho_Chi_Minh in production).
func CourseActivityFromRecord(rec *ActivityRecord, loc *time.Location) CourseActivity {
	localTime := rec.Timestamp.In(loc)
	resourceName := extractResourceName(rec.Metadata, rec.PageTitle)

	return CourseActivity{
		ID:                 rec.ID,
		ActorID:            rec.ActorID,
		ActivityType:       rec.ActivityType,
		Action:             rec.Action,
		FormattedTitle:     FormatActivityTitle(rec.ActivityType, resourceName, localTime),
		ResourceType:       rec.ActivityType.Resource(),
		ResourceName:       resourceName,
		ResourceID:         extractResourceID(rec.Metadata),
		PageURL:            rec.PageURL,
		Timestamp:          localTime,
		TimestampFormatted: localTime.Format(vietnameseTimeLayout),
		DurationMS:         rec.DurationMS,
		Metadata:           rec.Metadata,
	}
}

// FormatActivityTitle renders the Vietnamese feed phrase for an activity.
// Types with a catalog template use it; everything else falls back to the
// generic "Hoạt động: TYPE - name" phrasing. A non-zero timestamp appends
// " vào lúc HH:mm ngày dd/MM/yyyy".
func FormatActivityTitle(t ActivityType, resourceName string, localTime time.Time) string {
	timeSuffix := ""
	if !localTime.IsZero() {
		timeSuffix = " vào lúc " + localTime.Format(vietnameseTimeLayout)
	}

	traits, ok := Catalog[t]
	if !ok || traits.Template == "" {
		return "Hoạt động: " + string(t) + " - " + resourceName + timeSuffix
	}
	if !strings.Contains(traits.Template, "%s") {
		return traits.Template + timeSuffix
	}
	return fmt.Sprintf(traits.Template, resourceName) + timeSuffix
}

// extractResourceName resolves the display name for a resource: metadata
// keys in priority order, then page title, then the unknown placeholder.
func extractResourceName(md map[string]interface{}, pageTitle string) string {
	for _, key := range resourceNameKeys {
		if v, ok := md[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if pageTitle != "" {
		return pageTitle
	}
	return unknownResourceName
}

// extractResourceID resolves the numeric resource identifier from metadata,
// trying keys in priority order and coercing numeric strings.
func extractResourceID(md map[string]interface{}) *int64 {
	for _, key := range resourceIDKeys {
		if id := metadataInt64(md, key); id != nil {
			return id
		}
	}
	return nil
}
