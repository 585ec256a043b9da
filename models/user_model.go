package models

import (
	"strings"
	"time"
)

const (
	MinHabitsForCompleteProfile = 3
	MaxHabits                   = 8
	MaxBioLength                = 30
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:120;not null" json:"name"`
	Email    string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Birthdate *time.Time `gorm:"type:date" json:"birthdate"`
	Age       *int       `json:"age"`
	Gender    *string    `gorm:"size:40" json:"gender"`
	Location  *string    `gorm:"size:255" json:"location"`
	Budget    *float64   `gorm:"type:numeric(10,2)" json:"budget"`
	Habits    string     `gorm:"type:text;not null;default:''" json:"habits"`
	Bio       *string    `gorm:"size:30" json:"bio"`

	Tidiness       *int `json:"tidiness"`
	SocialEnergy   *int `json:"social_energy"`
	NoiseTolerance *int `json:"noise_tolerance"`

	ProfileImageURL *string `gorm:"size:512" json:"profile_image_url"`
	ProfileComplete bool    `gorm:"not null;default:false;index" json:"profile_complete"`

	TermsAccepted bool `gorm:"not null;default:false" json:"-"`
	EmailOptIn    bool `gorm:"not null;default:false" json:"email_opt_in"`

	ResetTokenHash      *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseHabits splits the stored comma separated habit list, trimming entries and dropping empty ones.
func ParseHabits(value string) []string {
	parts := strings.Split(value, ",")
	habits := make([]string, 0, len(parts))
	for _, part := range parts {
		if h := strings.TrimSpace(part); h != "" {
			habits = append(habits, h)
		}
	}
	return habits
}

// JoinHabits is the inverse of ParseHabits. Duplicates are dropped, first occurrence wins.
func JoinHabits(habits []string) string {
	seen := make(map[string]struct{}, len(habits))
	out := make([]string, 0, len(habits))
	for _, h := range habits {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return strings.Join(out, ", ")
}

// IsProfileComplete gates roommate visibility. It must be re-evaluated whenever any field it reads changes.
func (u *User) IsProfileComplete() bool {
	return present(u.Gender) &&
		present(u.Location) &&
		present(u.Bio) &&
		present(u.ProfileImageURL) &&
		len(ParseHabits(u.Habits)) >= MinHabitsForCompleteProfile &&
		validRating(u.Tidiness) &&
		validRating(u.SocialEnergy) &&
		validRating(u.NoiseTolerance)
}

// AgeOn returns the age in whole years at the given instant.
func AgeOn(birthdate, now time.Time) int {
	years := now.Year() - birthdate.Year()
	if now.Month() < birthdate.Month() || (now.Month() == birthdate.Month() && now.Day() < birthdate.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func validRating(r *int) bool {
	return r != nil && *r >= 1 && *r <= 5
}
