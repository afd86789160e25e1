package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh object identifier in its 24 character hex form.
// Every store backend uses the same format so ids stay interchangeable.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a well formed object identifier.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// CanonicalID returns the lower-case hex form of a well formed id. Object ids
// are case-insensitive, so every lookup and cache key goes through this form.
// Malformed ids are returned unchanged.
func CanonicalID(id string) string {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return id
	}
	return oid.Hex()
}
