package game

import "testing"

func TestDeriveGameID(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"empty address", "", "0"},
		{"short hex", "0x3039", "12345"},
		{"full address truncates to 16 digits", "0x00000000000030390000000000000000deadbeef", "12345"},
		{"max slice", "0xffffffffffffffff", "18446744073709551615"},
		{"garbage", "0xnothex", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveGameID(tt.address); got != tt.want {
				t.Errorf("DeriveGameID(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}

func TestDeriveGameID_Stable(t *testing.T) {
	const addr = "0x04d2c3b1a0998877665544332211ffeeddccbbaa"
	first := DeriveGameID(addr)
	for i := 0; i < 10; i++ {
		if got := DeriveGameID(addr); got != first {
			t.Fatalf("DeriveGameID not stable: got %q, want %q", got, first)
		}
	}
}

func TestIsWinPosition(t *testing.T) {
	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{X: 4, Y: 4}, true},
		{Position{X: 0, Y: 0}, false},
		{Position{X: 4, Y: 3}, false},
		{Position{X: 3, Y: 4}, false},
	}
	for _, tt := range tests {
		if got := IsWinPosition(tt.pos); got != tt.want {
			t.Errorf("IsWinPosition(%+v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestStatusFromWire(t *testing.T) {
	tests := []struct {
		wire uint64
		want Status
	}{
		{0, StatusInProgress},
		{1, StatusWon},
		{2, StatusLost},
		{99, StatusInProgress},
	}
	for _, tt := range tests {
		if got := StatusFromWire(tt.wire); got != tt.want {
			t.Errorf("StatusFromWire(%d) = %q, want %q", tt.wire, got, tt.want)
		}
	}
}

func TestEncounterFromCode(t *testing.T) {
	tests := []struct {
		code   uint64
		want   EncounterKind
		wantOK bool
	}{
		{0, "", false},
		{1, EncounterWerewolf, true},
		{2, EncounterVampire, true},
		{3, EncounterFreeHealth, true},
		{4, EncounterAttackPoints, true},
		{5, EncounterReducedDamage, true},
		{6, EncounterFreeAttack, true},
		{7, EncounterFreeFlee, true},
		{8, EncounterFreeRoam, true},
		{9, "", false},
	}
	for _, tt := range tests {
		kind, ok := EncounterFromCode(tt.code)
		if kind != tt.want || ok != tt.wantOK {
			t.Errorf("EncounterFromCode(%d) = (%q, %v), want (%q, %v)", tt.code, kind, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEncounterKind_IsBeast(t *testing.T) {
	beasts := map[EncounterKind]bool{
		EncounterWerewolf:      true,
		EncounterVampire:       true,
		EncounterFreeHealth:    false,
		EncounterAttackPoints:  false,
		EncounterReducedDamage: false,
		EncounterFreeAttack:    false,
		EncounterFreeFlee:      false,
		EncounterFreeRoam:      false,
	}
	for kind, want := range beasts {
		if got := kind.IsBeast(); got != want {
			t.Errorf("%q.IsBeast() = %v, want %v", kind, got, want)
		}
	}
}

func TestDirection_WireCode(t *testing.T) {
	tests := []struct {
		dir  Direction
		want uint8
	}{
		{DirectionLeft, 0},
		{DirectionRight, 1},
		{DirectionUp, 2},
		{DirectionDown, 3},
	}
	for _, tt := range tests {
		got, err := tt.dir.WireCode()
		if err != nil {
			t.Fatalf("%q.WireCode() error: %v", tt.dir, err)
		}
		if got != tt.want {
			t.Errorf("%q.WireCode() = %d, want %d", tt.dir, got, tt.want)
		}
	}
	if _, err := Direction("Sideways").WireCode(); err == nil {
		t.Error("WireCode for unknown direction should fail")
	}
}

func TestBeastFromCode(t *testing.T) {
	if kind, ok := BeastFromCode(1); !ok || kind != EncounterWerewolf {
		t.Errorf("BeastFromCode(1) = (%q, %v), want Werewolf", kind, ok)
	}
	if kind, ok := BeastFromCode(2); !ok || kind != EncounterVampire {
		t.Errorf("BeastFromCode(2) = (%q, %v), want Vampire", kind, ok)
	}
	if _, ok := BeastFromCode(0); ok {
		t.Error("BeastFromCode(0) should be the not-propagated sentinel")
	}
}
