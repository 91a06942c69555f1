package dto

// TransferRequestPayload is submitted by a citizen from the status page.
type TransferRequestPayload struct {
	ToCategoryID string  `json:"to_category_id" validate:"required,uuid"`
	Reason       *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}
