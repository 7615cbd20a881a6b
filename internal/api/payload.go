package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eugenenazirov/service-calculator/internal/textinput"
)

// flexAmount accepts a JSON number or a string such as "12,50".
type flexAmount struct {
	Value float64
	Set   bool
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = flexAmount{}
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	v, err := textinput.ParseAmount(text)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = flexAmount{Value: v, Set: true}
	return nil
}

// flexQuantity accepts a JSON number, a numeric string or null. Anything that
// is not a non-negative integer reads as zero.
type flexQuantity int

func (q *flexQuantity) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if len(text) > 0 && text[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	*q = flexQuantity(textinput.ParseQuantity(text))
	return nil
}

type solveRequest struct {
	Quantities     []flexQuantity `json:"quantities"`
	Target         flexAmount     `json:"target"`
	Mode           string         `json:"mode"`
	Strategy       string         `json:"strategy"`
	FloorAtCurrent *bool          `json:"floorAtCurrent"`
}

type solveLine struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Current   int     `json:"current"`
	Quantity  int     `json:"quantity"`
	Reduction int     `json:"reduction"`
	Subtotal  float64 `json:"subtotal"`
}

type solveResponse struct {
	ProjectName       string      `json:"projectName"`
	Mode              string      `json:"mode"`
	Strategy          string      `json:"strategy"`
	Target            float64     `json:"target"`
	Achieved          float64     `json:"achieved"`
	Residual          float64     `json:"residual"`
	OriginalTotal     float64     `json:"originalTotal"`
	FinalTotal        float64     `json:"finalTotal"`
	Quality           string      `json:"quality"`
	Cached            bool        `json:"cached"`
	CalculationTimeMs int64       `json:"calculationTimeMs"`
	Items             []solveLine `json:"items"`
}

type serviceRequest struct {
	Name  string     `json:"name"`
	Price flexAmount `json:"price"`
}

type servicePatchRequest struct {
	Name  *string    `json:"name"`
	Price flexAmount `json:"price"`
}

type catalogRequest struct {
	ProjectName string           `json:"projectName"`
	Services    []serviceRequest `json:"services"`
}

type projectNameRequest struct {
	ProjectName string `json:"projectName"`
}

type serviceView struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type catalogResponse struct {
	ProjectName string        `json:"projectName"`
	Services    []serviceView `json:"services"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Message     string        `json:"message,omitempty"`
}

type serviceResponse struct {
	Service   serviceView `json:"service"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
