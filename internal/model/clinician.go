package model

type Clinician struct {
	Base
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	Specialty    string `db:"specialty" json:"specialty"`
	Role         Role   `db:"role" json:"role"`
	PasswordHash string `db:"password_hash" json:"-"`
	Active       bool   `db:"active" json:"active"`
}
