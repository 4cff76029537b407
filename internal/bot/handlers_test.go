package bot

import "testing"

func TestDuelWinnerComesFromPair(t *testing.T) {
	orig := duelPick
	t.Cleanup(func() { duelPick = orig })

	duelPick = func(n int) int {
		if n != 2 {
			t.Fatalf("drawn from %d sides", n)
		}
		return 0
	}
	if got := duelWinner("challenger", "opponent"); got != "challenger" {
		t.Fatalf("winner = %q, want challenger", got)
	}

	duelPick = func(int) int { return 1 }
	if got := duelWinner("challenger", "opponent"); got != "opponent" {
		t.Fatalf("winner = %q, want opponent", got)
	}
}
