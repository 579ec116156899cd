package update_booking_status

// UpdateStatusRequest HTTP request model
type UpdateStatusRequest struct {
	Status string  `json:"status"` // confirmed | cancelled | completed
	Reason *string `json:"reason,omitempty"`
}

func (r *UpdateStatusRequest) reason() string {
	if r.Reason == nil {
		return ""
	}
	return *r.Reason
}
