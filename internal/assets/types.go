package assets

import "time"

// ImageRow is an uploaded asset stored as a data URL.
// Rows created through UploadImage are addressed by their integer id.
// Rows created by the hybrid settings adapter carry a string Key instead and
// are invisible to the id-based paths.
type ImageRow struct {
	ID        int64     `json:"id"`
	Key       *string   `json:"key,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
