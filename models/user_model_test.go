package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func completeUser() *User {
	return &User{
		Gender:          strPtr("female"),
		Location:        strPtr("Nairobi"),
		Bio:             strPtr("Early riser"),
		ProfileImageURL: strPtr("https://img.example/u.png"),
		Habits:          "cooking, yoga, reading",
		Tidiness:        intPtr(4),
		SocialEnergy:    intPtr(3),
		NoiseTolerance:  intPtr(2),
	}
}

func TestParseHabits(t *testing.T) {
	assert.Equal(t, []string{"cooking", "yoga", "late nights"}, ParseHabits(" cooking,yoga ,, late nights ,"))
	assert.Empty(t, ParseHabits(""))
	assert.Empty(t, ParseHabits(" , ,"))
}

func TestJoinHabitsDropsDuplicates(t *testing.T) {
	assert.Equal(t, "cooking, yoga", JoinHabits([]string{"cooking", " yoga", "cooking", ""}))
}

func TestIsProfileComplete(t *testing.T) {
	assert.True(t, completeUser().IsProfileComplete())

	cases := map[string]func(u *User){
		"missing gender":      func(u *User) { u.Gender = nil },
		"blank location":      func(u *User) { u.Location = strPtr("  ") },
		"missing bio":         func(u *User) { u.Bio = nil },
		"missing image":       func(u *User) { u.ProfileImageURL = nil },
		"two habits":          func(u *User) { u.Habits = "cooking, yoga" },
		"unset tidiness":      func(u *User) { u.Tidiness = nil },
		"social out of range": func(u *User) { u.SocialEnergy = intPtr(6) },
		"noise zero":          func(u *User) { u.NoiseTolerance = intPtr(0) },
	}
	for name, mutate := range cases {
		u := completeUser()
		mutate(u)
		assert.False(t, u.IsProfileComplete(), name)
	}
}

func TestAgeOn(t *testing.T) {
	birth := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 25, AgeOn(birth, time.Date(2026, time.June, 14, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 26, AgeOn(birth, time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeOn(birth, time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	listing := uint(5)

	assert.Equal(t, DirectKey(1, 2, nil), DirectKey(2, 1, nil))
	assert.Equal(t, DirectKey(1, 2, &listing), DirectKey(2, 1, &listing))
	assert.NotEqual(t, DirectKey(1, 2, nil), DirectKey(1, 2, &listing))
}

func TestIsUnreadFor(t *testing.T) {
	read := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{SenderID: 2, CreatedAt: read}

	assert.False(t, msg.IsUnreadFor(2, nil), "own messages are never unread")
	assert.True(t, msg.IsUnreadFor(1, nil), "never read counts everything")
	assert.False(t, msg.IsUnreadFor(1, &read), "created at the read instant is read")

	later := Message{SenderID: 2, CreatedAt: read.Add(time.Second)}
	assert.True(t, later.IsUnreadFor(1, &read))
}

func TestCountUnread(t *testing.T) {
	read := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{SenderID: 2, CreatedAt: read.Add(-time.Minute)},
		{SenderID: 2, CreatedAt: read.Add(time.Minute)},
		{SenderID: 1, CreatedAt: read.Add(2 * time.Minute)},
		{SenderID: 3, CreatedAt: read.Add(3 * time.Minute)},
	}

	assert.EqualValues(t, 2, CountUnread(msgs, 1, &read))
	assert.EqualValues(t, 3, CountUnread(msgs, 1, nil))
	assert.EqualValues(t, 0, CountUnread(nil, 1, nil))
}

func TestNextMessageTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now, NextMessageTime(now, nil))

	earlier := now.Add(-time.Second)
	assert.Equal(t, now, NextMessageTime(now, &earlier))

	later := now.Add(time.Millisecond)
	assert.Equal(t, later.Add(time.Microsecond), NextMessageTime(now, &later))
	assert.Equal(t, now.Add(time.Microsecond), NextMessageTime(now, &now))
}
