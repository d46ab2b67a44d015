package domain

// ApprovalType distinguishes the two change-request kinds routed through the
// approval pipeline.
type ApprovalType string

const (
	ApprovalEditData   ApprovalType = "editData"
	ApprovalDeleteData ApprovalType = "deleteData"
)

// ApprovalRequest is a pending change to an already-live record. RequestData
// holds only the changed fields; an empty diff is never submitted.
type ApprovalRequest struct {
	Type         ApprovalType   `json:"type"`
	RequestName  string         `json:"requestName"`
	RequestData  map[string]any `json:"requestData"`
	RequestedURL string         `json:"requestedUrl"`
}
