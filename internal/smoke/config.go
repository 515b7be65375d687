// Package smoke drives a running faceattr server with concurrent uploads and
// checks every answer against the model's label contract.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Images   []string      // Image files to upload, used round-robin
	Requests int           // Number of analyze-face calls
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Save     bool          // Post each prediction back to save-analysis
	LogFile  string        // Log file for run output
	Verbose  bool          // Log every response
}

// Prediction mirrors the analyze-face response.
type Prediction struct {
	Race        string             `json:"race"`
	RaceProbs   map[string]float64 `json:"race_probs"`
	Gender      string             `json:"gender"`
	GenderProb  float64            `json:"gender_prob"`
	GenderProbs map[string]float64 `json:"gender_probs"`
	Age         string             `json:"age"`
	AgeProb     float64            `json:"age_prob"`
	AgeProbs    map[string]float64 `json:"age_probs"`
}

// Health mirrors the health response.
type Health struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	Device       string `json:"device"`
	AlbumsDir    string `json:"albums_dir"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted  int
	Successful int
	Rejected   int // 4xx, e.g. no face in the sample
	Failed     int // transport errors, 5xx, contract violations
	Saved      int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
