package coin

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	c, err := New(42)
	if err != nil {
		t.Fatalf("New(42) error: %v", err)
	}
	if c != 42 {
		t.Errorf("New(42) = %d", c)
	}

	c, err = New(uint64(MaxCoin))
	if err != nil {
		t.Fatalf("New(MaxCoin) error: %v", err)
	}
	if c != MaxCoin {
		t.Errorf("New(MaxCoin) = %d, want %d", c, MaxCoin)
	}

	if _, err := New(uint64(MaxCoin) + 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("New(MaxCoin+1) error = %v, want ErrOutOfBounds", err)
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Coin
		want    Coin
		wantErr bool
	}{
		{"zeros", 0, 0, 0, false},
		{"small", 1000, 2000, 3000, false},
		{"exactly max", MaxCoin - 1, 1, MaxCoin, false},
		{"one over max", MaxCoin, 1, 0, true},
		{"both max", MaxCoin, MaxCoin, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.a, tt.b)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfBounds) {
					t.Fatalf("error = %v, want ErrOutOfBounds", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Add(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAdd_Property(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10_000; i++ {
		a := Coin(r.Uint64N(uint64(MaxCoin) + 1))
		b := Coin(r.Uint64N(uint64(MaxCoin) + 1))
		sum, err := Add(a, b)
		if uint64(a)+uint64(b) > uint64(MaxCoin) {
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("Add(%d, %d) error = %v, want ErrOutOfBounds", a, b, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Add(%d, %d) error: %v", a, b, err)
		}
		if uint64(sum) != uint64(a)+uint64(b) {
			t.Fatalf("Add(%d, %d) = %d", a, b, sum)
		}
	}
}

func TestLimit_AddNoWrap(t *testing.T) {
	l := Limit{Max: math.MaxUint64}
	if _, err := l.Add(math.MaxUint64, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Add wrap error = %v, want ErrOutOfBounds", err)
	}

	got, err := l.Add(math.MaxUint64-1, 1)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if got != Coin(math.MaxUint64) {
		t.Errorf("Add = %d, want MaxUint64", got)
	}
}

func TestSub(t *testing.T) {
	got, err := Sub(1000, 400)
	if err != nil {
		t.Fatalf("Sub error: %v", err)
	}
	if got != 600 {
		t.Errorf("Sub(1000, 400) = %d, want 600", got)
	}

	got, err = Sub(1000, 1000)
	if err != nil {
		t.Fatalf("Sub error: %v", err)
	}
	if got != Zero {
		t.Errorf("Sub(1000, 1000) = %d, want 0", got)
	}

	if _, err := Sub(400, 1000); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Sub(400, 1000) error = %v, want ErrOutOfBounds", err)
	}
}

func TestSum(t *testing.T) {
	got, err := Sum()
	if err != nil || got != Zero {
		t.Errorf("Sum() = %d, %v; want 0, nil", got, err)
	}

	got, err = Sum(1, 2, 3)
	if err != nil || got != 6 {
		t.Errorf("Sum(1, 2, 3) = %d, %v; want 6, nil", got, err)
	}

	if _, err := Sum(MaxCoin, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Sum over max error = %v, want ErrOutOfBounds", err)
	}
}

func TestSum_IncrementalCheck(t *testing.T) {
	// A custom limit makes the intermediate sum overflow before the last value.
	l := Limit{Max: 100}
	_, err := l.Sum(60, 60, 0)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("error = %v, want ErrOutOfBounds", err)
	}
	if !strings.Contains(err.Error(), "value 1") {
		t.Errorf("error %q should name value 1", err)
	}
}

func TestDifferential(t *testing.T) {
	tests := []struct {
		a, b Coin
		want Diff
		str  string
	}{
		{10, 5, Diff{Sign: SignPositive, Value: 5}, "+5"},
		{5, 10, Diff{Sign: SignNegative, Value: 5}, "-5"},
		{7, 7, Diff{Sign: SignZero}, "0"},
	}
	for _, tt := range tests {
		got := Differential(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("Differential(%d, %d) = %+v, want %+v", tt.a, tt.b, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("Differential(%d, %d).String() = %q, want %q", tt.a, tt.b, got.String(), tt.str)
		}
	}
}

func TestSign_Order(t *testing.T) {
	// The zero value of Diff is a zero difference.
	var d Diff
	if !d.IsZero() || d.Sign != SignZero {
		t.Errorf("zero Diff has sign %s, want Zero", d.Sign)
	}
	order := []Sign{SignZero, SignPositive, SignNegative}
	for i, s := range order {
		if int(s) != i {
			t.Errorf("%s = %d, want %d", s, s, i)
		}
	}
	if Sign(3).String() != "Unknown" {
		t.Errorf("Sign(3).String() = %q", Sign(3).String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Coin
	}{
		{"0", 0},
		{"1", Unit},
		{"0.5", Unit / 2},
		{"3.000001", 3*Unit + 1},
		{"45000000000", MaxCoin},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := Coin(1_500_000).Format(); got != "1.500000" {
		t.Errorf("Format() = %q, want 1.500000", got)
	}

	for _, bad := range []string{"", "-1", "1.0000001", "abc", "45000000001"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}

	_, err := Parse("45000000001")
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Parse over max: got %v, want ErrOutOfBounds", err)
	}
}
