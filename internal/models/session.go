package models

import "time"

// Session es el registro del lado servidor de un login. Se guarda en Redis
// bajo session:<id>.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expiresAt"`
}
