package handlers

// Request Types

// AuthorizationEntryPayload is the wire shape of a signed authorization
// tuple, matching the transaction layer's authorization-list entries.
type AuthorizationEntryPayload struct {
	ChainID uint64 `json:"chainId"`
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
	YParity uint8  `json:"yParity"`
	R       string `json:"r"`
	S       string `json:"s"`
}

type BuildAuthorizationRequest struct {
	Delegate string `json:"delegate"`
}

type SubmitDelegationRequest struct {
	Authorization AuthorizationEntryPayload `json:"authorization" binding:"required"`
	To            string                    `json:"to"`
	Value         string                    `json:"value"`
	Data          string                    `json:"data"`
	Gas           uint64                    `json:"gas"`
}

type CallPayload struct {
	Target string `json:"target"`
	Value  string `json:"value"`
	Data   string `json:"data"`
}

type BatchHashRequest struct {
	Calls    []CallPayload `json:"calls"`
	Nonce    uint64        `json:"nonce"`
	Deadline uint64        `json:"deadline"`
}

type AdminChangeHashRequest struct {
	NewAdmin string `json:"newAdmin" binding:"required"`
	Nonce    uint64 `json:"nonce"`
	Deadline uint64 `json:"deadline"`
}

type CallerUpdateHashRequest struct {
	Callers  []string `json:"callers"`
	IsAdding []bool   `json:"isAdding"`
	Nonce    uint64   `json:"nonce"`
	Deadline uint64   `json:"deadline"`
}

// Response Types

type BuildAuthorizationResponse struct {
	Authority     string                    `json:"authority"`
	SigningHash   string                    `json:"signingHash"`
	Authorization AuthorizationEntryPayload `json:"authorization"`
}

type SubmitDelegationResponse struct {
	TransactionHash string `json:"transactionHash"`
	Authority       string `json:"authority"`
}

type HashResponse struct {
	Hash string `json:"hash"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
