package model

import (
	"encoding/json"
	"fmt"
)

type SenderType string

const (
	SenderCustomer SenderType = "Customer"
	SenderAdmin    SenderType = "Admin"
)

func (s SenderType) Valid() bool {
	return s == SenderCustomer || s == SenderAdmin
}

// Opposite returns the party whose unread counter a message from s increments.
func (s SenderType) Opposite() SenderType {
	if s == SenderAdmin {
		return SenderCustomer
	}
	return SenderAdmin
}

func (s *SenderType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v := SenderType(raw)
	if !v.Valid() {
		return fmt.Errorf("invalid sender type %q", raw)
	}
	*s = v
	return nil
}
