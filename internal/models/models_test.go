package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShootingPeriod_Contains(t *testing.T) {
	p := ShootingPeriod{
		Name:     "Block A",
		Location: "tbilisi",
		Start:    Date(2026, time.March, 3),
		End:      Date(2026, time.March, 10),
	}

	assert.True(t, p.Contains(Date(2026, time.March, 3)))
	assert.True(t, p.Contains(Date(2026, time.March, 10)))
	assert.True(t, p.Contains(time.Date(2026, time.March, 5, 18, 30, 0, 0, time.Local)))
	assert.False(t, p.Contains(Date(2026, time.March, 2)))
	assert.False(t, p.Contains(Date(2026, time.March, 11)))
}

func TestWeekendPolicy_Valid(t *testing.T) {
	assert.True(t, WeekendWorkIfAdjacent.Valid())
	assert.True(t, WeekendAlwaysHome.Valid())
	assert.True(t, WeekendAlwaysStay.Valid())
	assert.False(t, WeekendPolicy("sometimes").Valid())
	assert.False(t, WeekendPolicy("").Valid())
}

func TestNewCastMember(t *testing.T) {
	m := NewCastMember("Ana Kipiani", "local")

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Ana Kipiani", m.Name)
	assert.Equal(t, "local", m.HomeLocation)
	assert.True(t, m.Include)

	other := NewCastMember("Ana Kipiani", "local")
	assert.NotEqual(t, m.ID, other.ID)
}

func TestDateHelpers(t *testing.T) {
	d := DateOnly(time.Date(2026, time.January, 4, 23, 59, 1, 0, time.FixedZone("x", 3600)))
	assert.Equal(t, Date(2026, time.January, 4), d)

	assert.True(t, IsWeekend(Date(2026, time.January, 3)))  // Saturday
	assert.True(t, IsWeekend(Date(2026, time.January, 4)))  // Sunday
	assert.False(t, IsWeekend(Date(2026, time.January, 5))) // Monday
}
