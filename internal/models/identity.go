package models

import "strings"

// Identity es lo que entrega el proveedor federado al iniciar sesión.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Email       string `json:"email"`
}

func (i Identity) Creator() Creator {
	return Creator{UID: i.UID, DisplayName: i.DisplayName, PhotoURL: i.PhotoURL}
}

// IsAdminEmail aplica la regla de administración por dominio de email.
func IsAdminEmail(email, domain string) bool {
	if domain == "" || email == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), strings.ToLower(domain))
}
