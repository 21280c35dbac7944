package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0.01", 1, true},
		{"12.345", 1234, true}, // third decimal rounds down
		{"12.346", 1235, true}, // third decimal rounds up
		{".5", 50, true},
		{"", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"12x", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tc.in, err)
				continue
			}
			if got != tc.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseDecimalToCents(%q) expected error, got %d", tc.in, got)
		}
	}
}

func TestParseBalanceToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"0.00", 0, true},
		{"150.50", 15050, true},
		{"-5", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseBalanceToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseBalanceToCents(%q) unexpected error: %v", tc.in, err)
				continue
			}
			if got.Cents != tc.want {
				t.Errorf("ParseBalanceToCents(%q) = %d, want %d", tc.in, got.Cents, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseBalanceToCents(%q) expected error, got %d", tc.in, got.Cents)
		}
	}
}

func TestMoneyUnits(t *testing.T) {
	if got := (Money{Cents: 1234}).Units(); got != 12.34 {
		t.Fatalf("Units() = %v, want 12.34", got)
	}
}

func TestMoneyAdd(t *testing.T) {
	if got := (Money{Cents: 100}).Add(Money{Cents: 250}); got.Cents != 350 {
		t.Fatalf("Add() = %d, want 350", got.Cents)
	}
}
