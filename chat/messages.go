package chat

// Chat pairs two participants under a numeric id. Field tags mirror the
// JSON the clients send.
type Chat struct {
	ID             uint64    `json:"id"`
	ParticipantIDs [2]uint64 `json:"participantIds"`
}

// Message is one chat log entry
type Message struct {
	ID                string `json:"id"`
	SourceUserID      uint64 `json:"sourceUserId"`
	DestinationUserID uint64 `json:"destinationUserId"`
	Timestamp         uint64 `json:"timestamp"`
	Message           string `json:"message"`
}
