package domain

import "time"

// ReferenceRecord holds the attributes of a verified stone, keyed by certificate number.
type ReferenceRecord struct {
	CertificateNumber string            `json:"certificateNumber"`
	Shape             string            `json:"shape"`
	Carat             string            `json:"carat"`
	Color             string            `json:"color"`
	Clarity           string            `json:"clarity"`
	Cut               string            `json:"cut"`
	Polish            string            `json:"polish"`
	Symmetry          string            `json:"symmetry"`
	Fluorescence      string            `json:"fluorescence"`
	Measurement       string            `json:"measurement"`
	Location          string            `json:"location"`
	StockID           string            `json:"stock_ID"`
	FullData          map[string]string `json:"fullData,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
