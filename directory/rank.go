package directory

// Rank is the ordered capability level of a participant.
type Rank int

// Rank levels, ordered: Banned < User < Mod < Admin.
const (
	RankBanned Rank = -10
	RankUser   Rank = 0
	RankMod    Rank = 10
	RankAdmin  Rank = 100
)

// maxRank is the highest assignable rank, used for priority computation.
const maxRank = RankAdmin

// String returns the lowercase rank name.
func (r Rank) String() string {
	switch r {
	case RankBanned:
		return "banned"
	case RankUser:
		return "user"
	case RankMod:
		return "mod"
	case RankAdmin:
		return "admin"
	}
	return "unknown"
}
