package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeTopic lower-cases, trims, and collapses inner whitespace so that
// "Docker ", "docker" and "DOCKER" all merge into one identity.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(topic))), " ")
}

// ConceptID derives the deterministic concept identity for (user, topic).
// Equal inputs always produce equal ids; different users never collide on the
// same topic.
func ConceptID(userID int32, topic string) string {
	return generateID(userID, "concept", topic)
}

// PreferenceID derives the deterministic preference identity for
// (user, type, topic).
func PreferenceID(userID int32, prefType PreferenceType, topic string) string {
	return generateID(userID, string(prefType), topic)
}

func generateID(userID int32, kind, topic string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", userID, kind, NormalizeTopic(topic))))
	return hex.EncodeToString(sum[:16])
}
