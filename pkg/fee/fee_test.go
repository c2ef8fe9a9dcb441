package fee

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
)

func TestMilli_AddMul(t *testing.T) {
	tests := []struct {
		a, b uint64 // raw thousandths
	}{
		{10124128_192, 802_504},
		{1124128_915, 124802_192},
		{241, 900001_901},
		{241, 407},
	}
	for _, tt := range tests {
		sum, err := Milli(tt.a).Add(Milli(tt.b))
		if err != nil {
			t.Fatalf("Add(%d, %d) error: %v", tt.a, tt.b, err)
		}
		if got, want := sum.Trunc(), (tt.a+tt.b)/1000; got != want {
			t.Errorf("Add(%d, %d).Trunc() = %d, want %d", tt.a, tt.b, got, want)
		}

		prod, err := Milli(tt.a).Mul(Milli(tt.b))
		if err != nil {
			t.Fatalf("Mul(%d, %d) error: %v", tt.a, tt.b, err)
		}
		if got, want := prod.Trunc(), tt.a*tt.b/1_000_000; got != want {
			t.Errorf("Mul(%d, %d).Trunc() = %d, want %d", tt.a, tt.b, got, want)
		}
	}
}

func TestMilli_Overflow(t *testing.T) {
	if _, err := Milli(math.MaxUint64).Add(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Add overflow: error = %v, want ErrOverflow", err)
	}
	if _, err := Milli(math.MaxUint64).Mul(MustMilli(2, 0)); !errors.Is(err, ErrOverflow) {
		t.Errorf("Mul overflow: error = %v, want ErrOverflow", err)
	}
	if _, err := Integral(math.MaxUint64); !errors.Is(err, ErrOverflow) {
		t.Errorf("Integral overflow: error = %v, want ErrOverflow", err)
	}
}

func TestNewMilli_Bounds(t *testing.T) {
	// The largest integral part whose thousandths still fit.
	const top = math.MaxUint64 / milliScale

	m, err := NewMilli(top, 615)
	if err != nil {
		t.Fatalf("NewMilli(top, 615) error: %v", err)
	}
	if uint64(m) != math.MaxUint64 {
		t.Errorf("NewMilli(top, 615) = %d, want MaxUint64", uint64(m))
	}

	if _, err := NewMilli(top, 616); !errors.Is(err, ErrOverflow) {
		t.Errorf("NewMilli(top, 616) error = %v, want ErrOverflow", err)
	}
	if _, err := NewMilli(top, 999); !errors.Is(err, ErrOverflow) {
		t.Errorf("NewMilli(top, 999) error = %v, want ErrOverflow", err)
	}
	if _, err := NewMilli(top+1, 0); !errors.Is(err, ErrOverflow) {
		t.Errorf("NewMilli(top+1, 0) error = %v, want ErrOverflow", err)
	}

	// Fractions of 1000 or more are rejected, not reduced.
	if _, err := NewMilli(1, 1000); err == nil {
		t.Error("NewMilli(1, 1000) should fail")
	}
}

func TestMilli_CeilTrunc(t *testing.T) {
	m := MustMilli(43, 946)
	if m.Trunc() != 43 {
		t.Errorf("Trunc() = %d, want 43", m.Trunc())
	}
	if m.Ceil() != 44 {
		t.Errorf("Ceil() = %d, want 44", m.Ceil())
	}
	if got := MustMilli(43, 0).Ceil(); got != 43 {
		t.Errorf("Ceil() of integral = %d, want 43", got)
	}
	if m.String() != "43.946" {
		t.Errorf("String() = %q, want 43.946", m.String())
	}
}

func TestLinearFee_EstimateFee(t *testing.T) {
	f := DefaultLinearFee()
	tests := []struct {
		size int
		want coin.Coin
	}{
		{0, 155381},
		{1, 155381 + 44},          // 155424.946 -> 155425
		{100, 155381 + 4395},      // 4394.6 -> 159775.6 -> 159776
		{1000, 155381 + 43946},    // exact
		{65536, 155381 + 2880046}, // 2880045.056 -> ceil
	}
	for _, tt := range tests {
		got, err := f.EstimateFee(tt.size)
		if err != nil {
			t.Fatalf("EstimateFee(%d) error: %v", tt.size, err)
		}
		if got != tt.want {
			t.Errorf("EstimateFee(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestLinearFee_Monotonic(t *testing.T) {
	f := DefaultLinearFee()
	prev, err := f.EstimateFee(0)
	if err != nil {
		t.Fatalf("EstimateFee(0) error: %v", err)
	}
	for size := 1; size < 2000; size++ {
		got, err := f.EstimateFee(size)
		if err != nil {
			t.Fatalf("EstimateFee(%d) error: %v", size, err)
		}
		if got < prev {
			t.Fatalf("EstimateFee(%d) = %d, below EstimateFee(%d) = %d", size, got, size-1, prev)
		}
		prev = got
	}
}

func TestLinearFee_Overhead(t *testing.T) {
	f := DefaultLinearFee()
	got, err := f.EstimateOverhead(1000)
	if err != nil {
		t.Fatalf("EstimateOverhead(1000) error: %v", err)
	}
	if got != 43946 {
		t.Errorf("EstimateOverhead(1000) = %d, want 43946", got)
	}

	if _, err := f.EstimateOverhead(-1); err == nil {
		t.Error("EstimateOverhead(-1) should fail")
	}
}

func TestLinearFee_Overflow(t *testing.T) {
	// Milli tops out below MaxCoin, so an oversized schedule overflows
	// the fixed-point sum before it reaches the coin bound.
	f := NewLinearFee(Milli(math.MaxUint64-10), Milli(1))
	if _, err := f.EstimateFee(20); !errors.Is(err, ErrOverflow) {
		t.Errorf("EstimateFee error = %v, want ErrOverflow", err)
	}
	if _, err := f.EstimateFee(10); err != nil {
		t.Errorf("EstimateFee(10) error: %v", err)
	}
}

func TestPerByte(t *testing.T) {
	var alg Algorithm = PerByte{Rate: 10}
	got, err := alg.EstimateFee(122)
	if err != nil {
		t.Fatalf("EstimateFee(122) error: %v", err)
	}
	if got != 1220 {
		t.Errorf("EstimateFee(122) = %d, want 1220", got)
	}

	if _, err := (PerByte{Rate: coin.MaxCoin}).EstimateFee(2); !errors.Is(err, coin.ErrOutOfBounds) {
		t.Errorf("EstimateFee at max rate error = %v, want ErrOutOfBounds", err)
	}
}

func TestParseMilli(t *testing.T) {
	tests := []struct {
		in      string
		want    Milli
		wantErr bool
	}{
		{"43.946", MustMilli(43, 946), false},
		{"155381", MustMilli(155381, 0), false},
		{"0.5", MustMilli(0, 500), false},
		{" 1.05 ", MustMilli(1, 50), false},
		{"18446744073709551.615", Milli(math.MaxUint64), false},
		{"1.", 0, true},
		{".5", 0, true},
		{"1.2345", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"18446744073709552", 0, true},
		{"18446744073709551.616", 0, true},
		{"18446744073709551.999", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMilli(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMilli(%q) = %s, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMilli(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMilli(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseMilli_NoWrap(t *testing.T) {
	_, err := ParseMilli("18446744073709551.999")
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("error = %v, want ErrOverflow", err)
	}
}

func TestLinearFee_JSON(t *testing.T) {
	data, err := json.Marshal(DefaultLinearFee())
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := `{"constant":"155381.000","coefficient":"43.946"}`; string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back LinearFee
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if back != DefaultLinearFee() {
		t.Errorf("round trip = %+v, want %+v", back, DefaultLinearFee())
	}

	if err := json.Unmarshal([]byte(`{"constant":"18446744073709551.999"}`), &back); !errors.Is(err, ErrOverflow) {
		t.Errorf("Unmarshal of overflowing constant error = %v, want ErrOverflow", err)
	}
}
