// internal/models/models.go
package models

import "time"

type Severity string

const (
	SeverityNormal   Severity = "Normal"
	SeverityMild     Severity = "Ringan"
	SeverityModerate Severity = "Sedang"
	SeveritySevere   Severity = "Berat"
)

// DiseaseSeverities are the levels a non-healthy result may carry.
var DiseaseSeverities = []Severity{SeverityMild, SeverityModerate, SeveritySevere}

// UploadRequest is one uploaded image. Size is the declared size from the
// multipart header; Data may be nil when the payload was not read because
// Size already exceeds the cap.
type UploadRequest struct {
	Filename string
	Size     int64
	Data     []byte
}

// DetectionResult is the JSON body of a successful /api/detect call.
type DetectionResult struct {
	Success        bool     `json:"success"`
	Disease        string   `json:"disease"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Treatments     []string `json:"treatments"`
	Prevention     []string `json:"prevention"`
	Timestamp      string   `json:"timestamp"`
	ProcessingTime float64  `json:"processing_time"`
	Note           string   `json:"note"`
}

type HistoryRecord struct {
	ID             int64     `json:"id" db:"id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	Disease        string    `json:"disease" db:"disease"`
	Confidence     float64   `json:"confidence" db:"confidence"`
	ImageHash      string    `json:"image_hash" db:"image_hash"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	ProcessingTime float64   `json:"processing_time" db:"processing_time"`
}

type DailyStats struct {
	Date              time.Time `json:"date" db:"date"`
	TotalDetections   int64     `json:"total_detections" db:"total_detections"`
	UniqueUsers       int64     `json:"unique_users" db:"unique_users"`
	AvgConfidence     float64   `json:"avg_confidence" db:"avg_confidence"`
	MostCommonDisease string    `json:"most_common_disease" db:"most_common_disease"`
}

// Summary aggregates the whole detection history.
type Summary struct {
	TotalDetections int64            `json:"total_detections"`
	AvgConfidence   float64          `json:"avg_confidence"`
	DiseaseCounts   map[string]int64 `json:"disease_counts"`
}

// DetectionEvent is published on the kafka topic after a detection is
// recorded.
type DetectionEvent struct {
	HistoryID  int64     `json:"history_id"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	ImageHash  string    `json:"image_hash"`
	Timestamp  time.Time `json:"timestamp"`
}
