// internal/workers/application/track-application/labels.go
package trackapplication

import "rts-portal/internal/models"

var statusLabels = map[string]string{
	models.StatusSubmitted:   "सबमिट केले",
	models.StatusInProgress:  "प्रक्रिया सुरू",
	models.StatusUnderReview: "पुनरावलोकनाधीन",
	models.StatusApproved:    "मंजूर",
	models.StatusRejected:    "नाकारले",
	models.StatusCompleted:   "पूर्ण",
}

var priorityLabels = map[string]string{
	models.PriorityHigh:   "उच्च",
	models.PriorityMedium: "मध्यम",
	models.PriorityLow:    "कमी",
}

// StatusDisplay returns the Marathi label of a status. Unknown values pass through.
func StatusDisplay(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// PriorityDisplay returns the Marathi label of a priority. Unknown values pass through.
func PriorityDisplay(priority string) string {
	if label, ok := priorityLabels[priority]; ok {
		return label
	}
	return priority
}

// StatusLabels returns a copy of the status label table.
func StatusLabels() map[string]string {
	out := make(map[string]string, len(statusLabels))
	for k, v := range statusLabels {
		out[k] = v
	}
	return out
}
