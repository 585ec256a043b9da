package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/models"
	"go.uber.org/zap"
)

const birthdateLayout = "2006-01-02"

// HabitList accepts either a JSON array of tags or a single comma separated string.
type HabitList []string

func (h *HabitList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*h = models.ParseHabits(strings.Join(list, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperrors.Validation("habits must be a list or a comma separated string")
	}
	*h = models.ParseHabits(s)
	return nil
}

// Rating accepts a number or numeric string. Anything outside [1,5] or non-numeric leaves the
// rating unset instead of failing.
type Rating struct {
	Value *int
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	r.Value = nil
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) || f < 1 || f > 5 {
		return nil
	}
	v := int(f)
	r.Value = &v
	return nil
}

type UpdateProfileInput struct {
	Gender          *string    `json:"gender"`
	Location        *string    `json:"location"`
	Budget          *float64   `json:"budget"`
	Habits          *HabitList `json:"habits"`
	ProfileImageURL *string    `json:"profile_image_url"`
	Bio             *string    `json:"bio"`
	Birthdate       *string    `json:"birthdate"`
	Tidiness        *Rating    `json:"tidiness"`
	SocialEnergy    *Rating    `json:"social_energy"`
	NoiseTolerance  *Rating    `json:"noise_tolerance"`
	EmailOptIn      *bool      `json:"email_opt_in"`
}

type ProfileService struct {
	users UserStore
	log   *zap.Logger
	Now   func() time.Time
}

func NewProfileService(users UserStore, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{users: users, log: log, Now: time.Now}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal("User", err)
	}
	return user, nil
}

// UpdateProfile applies the fields present in in. Age and profile completeness are always
// recomputed from the resulting profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal("User", err)
	}

	if in.Bio != nil && utf8.RuneCountInString(strings.TrimSpace(*in.Bio)) > models.MaxBioLength {
		return nil, apperrors.Validation("Bio must be 30 characters or fewer.")
	}
	if in.Habits != nil && len(*in.Habits) > models.MaxHabits {
		return nil, apperrors.Validation("Choose at most 8 habits.")
	}
	if in.Budget != nil && *in.Budget < 0 {
		return nil, apperrors.Validation("Budget cannot be negative.")
	}
	if in.Birthdate != nil {
		birthdate, err := ParseBirthdate(*in.Birthdate, s.Now())
		if err != nil {
			return nil, err
		}
		user.Birthdate = &birthdate
	}

	if in.Gender != nil {
		user.Gender = optionalText(*in.Gender)
	}
	if in.Location != nil {
		user.Location = optionalText(*in.Location)
	}
	if in.Budget != nil {
		user.Budget = in.Budget
	}
	if in.Habits != nil {
		user.Habits = models.JoinHabits(*in.Habits)
	}
	if in.ProfileImageURL != nil {
		user.ProfileImageURL = optionalText(*in.ProfileImageURL)
	}
	if in.Bio != nil {
		user.Bio = optionalText(*in.Bio)
	}
	if in.Tidiness != nil {
		user.Tidiness = in.Tidiness.Value
	}
	if in.SocialEnergy != nil {
		user.SocialEnergy = in.SocialEnergy.Value
	}
	if in.NoiseTolerance != nil {
		user.NoiseTolerance = in.NoiseTolerance.Value
	}
	if in.EmailOptIn != nil {
		user.EmailOptIn = *in.EmailOptIn
	}

	if user.Birthdate != nil {
		age := models.AgeOn(*user.Birthdate, s.Now())
		user.Age = &age
	}
	user.ProfileComplete = user.IsProfileComplete()

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	s.log.Debug("profile updated", zap.Uint("user_id", userID), zap.Bool("complete", user.ProfileComplete))
	return user, nil
}

// ListRoommates returns every other complete profile scored against the viewer, best match
// first. The viewer's own profile must be complete.
func (s *ProfileService) ListRoommates(ctx context.Context, viewerID uint) ([]RoommateMatch, error) {
	viewer, err := s.users.GetUser(ctx, viewerID)
	if err != nil {
		return nil, notFoundOrInternal("User", err)
	}
	if !viewer.ProfileComplete {
		return nil, apperrors.ProfileIncomplete("Complete your profile to browse roommates.")
	}

	candidates, err := s.users.ListCompleteProfiles(ctx, viewerID)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	return RankRoommates(viewer, candidates), nil
}

// ParseBirthdate accepts YYYY-MM-DD (or RFC 3339) dates that are not in the future.
func ParseBirthdate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(birthdateLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
	}
	if err != nil || t.After(now) {
		return time.Time{}, apperrors.Validation("Birthdate is invalid.")
	}
	return t.UTC(), nil
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
