package domain

type MemberLevel string

const (
	LevelOrdinary MemberLevel = "ordinary"
	LevelSilver   MemberLevel = "silver"
	LevelGold     MemberLevel = "gold"
	LevelPlatinum MemberLevel = "platinum"
	LevelDiamond  MemberLevel = "diamond"
)

// MemberProfile is the loyalty record for an end user. Points grow by
// floor(actual_payment) on every successful payment.
type MemberProfile struct {
	UserID int64
	Level  MemberLevel
	Points int64
}
