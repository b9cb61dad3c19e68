package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		category string
		age      int
		want     Status
	}{
		{"Dress", 90, Healthy},
		{"dress", 91, Transfer},
		{"dress material", 365, RateRevised},
		{"dress", 366, VeryDanger},
		{"lehenga", 250, Healthy},
		{"lehenga", 300, Transfer},
		{"lehenga", 366, VeryDanger},
		{"saree", 365, Healthy},
		{"saree", 366, VeryDanger},
		{"kurti", 100, Transfer},
		{"", 10, Healthy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.category, tc.age), "%s/%d", tc.category, tc.age)
	}
}

func TestRiskLevel(t *testing.T) {
	_, ok := RiskLevel(179)
	assert.False(t, ok)

	lvl, ok := RiskLevel(180)
	require.True(t, ok)
	assert.Equal(t, Early, lvl)

	lvl, _ = RiskLevel(250)
	assert.Equal(t, High, lvl)

	lvl, _ = RiskLevel(365)
	assert.Equal(t, Critical, lvl)
}

func TestAgeInDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	today := time.Date(2024, 1, 31, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, AgeInDays(start, today))
}

func TestParseStatusList(t *testing.T) {
	tags, err := ParseStatusList(" very_danger, HEALTHY,,VERY_DANGER ")
	require.NoError(t, err)
	assert.Equal(t, []Status{Healthy, VeryDanger}, tags)
	assert.Equal(t, "HEALTHY,VERY_DANGER", JoinStatuses(tags))

	_, err = ParseStatusList("HEALTHY,STALE")
	require.Error(t, err)

	tags, err = ParseStatusList("")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestMatchStoreQuery(t *testing.T) {
	assert.True(t, MatchStoreQuery("42", "42"))
	assert.False(t, MatchStoreQuery("142", "42"))
	assert.True(t, MatchStoreQuery("Store-North", "st"))
	assert.True(t, MatchStoreQuery("EAST", " ast "))
	assert.False(t, MatchStoreQuery("West", "north"))
	assert.True(t, MatchStoreQuery("anything", "  "))
	assert.True(t, IsNumericQuery(" 007 "))
	assert.False(t, IsNumericQuery("7a"))
	assert.False(t, IsNumericQuery(""))
}
