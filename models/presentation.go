package models

import "time"

// Client is the operator's customer that presentations are shared with.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" binding:"required"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Presentation is a shared deck. Token is assigned once on creation and never changes.
type Presentation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SourceURL     string    `json:"pdfUrl"`
	PloomesDealID string    `json:"ploomesDealId,omitempty"`
	ClientID      string    `json:"clientId,omitempty"`
	Token         string    `json:"token"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PresentationRequest struct {
	Title         string `json:"title" binding:"required"`
	SourceURL     string `json:"pdfUrl" binding:"required"`
	PloomesDealID string `json:"ploomesDealId"`
	ClientID      string `json:"clientId"`
}
