package models

import "time"

type User struct {
	ID           int64     `bson:"_id"          db:"id"            json:"id"`
	Username     string    `bson:"username"     db:"username"      json:"username"`
	Email        string    `bson:"email"        db:"email"         json:"email"`
	PasswordHash string    `bson:"passwordHash" db:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt"    db:"created_at"    json:"createdAt"`
}
