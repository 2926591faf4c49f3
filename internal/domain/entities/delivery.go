package entities

// DeliveryPayload is the document POSTed to the artifact-storage
// endpoint. Constructed only when an API key is configured.
type DeliveryPayload struct {
	Commit     string          `json:"commit"`
	Repository string          `json:"repository"`
	Findings   []Finding       `json:"findings"`
	Summary    DeliverySummary `json:"summary"`
	Timestamp  string          `json:"timestamp"`
	ScanID     string          `json:"scan_id"`
}

// DeliverySummary carries the severity counts the endpoint indexes on.
type DeliverySummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}
