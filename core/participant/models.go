package participant

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
)

type SkillLevel string

// Skill levels. SkillPending is the sentinel of a profile awaiting admin review.
const (
	SkillPending           SkillLevel = "Pending"
	SkillBasicVisual       SkillLevel = "Level 1: Basic Visual (Red)"
	SkillSimpleSteps       SkillLevel = "Level 2: Simple Steps (Yellow)"
	SkillGuidedIndependent SkillLevel = "Level 3: Guided Independence (Blue)"
	SkillFullIndependence  SkillLevel = "Level 4: Full Independence (Green)"
)

var (
	SkillLevels = []SkillLevel{SkillBasicVisual, SkillSimpleSteps, SkillGuidedIndependent, SkillFullIndependence}

	errInvalidSkill = errors.New("invalid skill level")
)

// ParseSkillLevel only accepts one of the 4 assignable SkillLevels.
func ParseSkillLevel(s string) (SkillLevel, error) {
	for _, lvl := range SkillLevels {
		if string(lvl) == s {
			return lvl, nil
		}
	}
	return "", errInvalidSkill
}

type Participant struct {
	ID             string     `json:"id"`
	ParentID       string     `json:"parent_id"`
	Name           string     `json:"name"`
	PINDigest      string     `json:"-"`
	SkillLevel     SkillLevel `json:"skill_level"`
	IsActive       bool       `json:"is_active"`
	SensoryDetails string     `json:"sensory_details"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
}

// CheckPIN compares the digest of `pin` against the stored one in constant time.
func (p Participant) CheckPIN(secret []byte, pin string) bool {
	return subtle.ConstantTimeCompare([]byte(DigestPIN(secret, pin)), []byte(p.PINDigest)) == 1
}

func (p Participant) Actor(sessionID string) core.Actor {
	return core.Actor{ID: p.ID, Name: p.Name, Role: core.RoleParticipant, SessionID: sessionID}
}

// DigestPIN returns the keyed digest a PIN is stored and looked up by.
func DigestPIN(secret []byte, pin string) string {
	h := hmac.New(sha256.New, secret)
	_, _ = h.Write([]byte("paku.participant.pin:" + pin))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidPIN reports whether pin is exactly 4 digits.
func ValidPIN(pin string) bool {
	return core.PINRegex.MatchString(pin)
}

// NewParticipant contains information needed by a parent to register a child.
type NewParticipant struct {
	Name           string `json:"name" validate:"required"`
	PIN            string `json:"pin" validate:"required,pin"`
	SensoryDetails string `json:"sensory_details" validate:"required"`
}

func (np *NewParticipant) Validate(validate *validator.Validate) error {
	np.Name = core.CleanText(np.Name)
	np.PIN = core.CleanString(np.PIN)
	np.SensoryDetails = core.CleanText(np.SensoryDetails)
	return validate.Struct(np)
}

// ReviewParticipant is the admin decision on a participant profile.
type ReviewParticipant struct {
	SkillLevel string `json:"skill_level" validate:"required,skill"`
	IsActive   *bool  `json:"is_active" validate:"required"`
}

func (rp *ReviewParticipant) Validate(validate *validator.Validate) error {
	rp.SkillLevel = core.CleanString(rp.SkillLevel)
	return validate.Struct(rp)
}

type GetFilter struct {
	ID        string
	PINDigest string
}

type QueryFilter struct {
	IDs        []string
	ParentID   string
	IsActive   *bool
	SkillLevel SkillLevel
}
