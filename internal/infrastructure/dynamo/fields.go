package dynamo

// Attribute names of the visits table used in key and update expressions.
const (
	fieldVisitID           = "visit_id"
	fieldIntroAcknowledged = "intro_acknowledged"
	fieldSelectedDocType   = "selected_doc_type"
	fieldExpiresAt         = "expires_at"
)
