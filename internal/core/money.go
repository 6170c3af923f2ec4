// Package core provides number parsing and currency display helpers.
//
// Amounts are plain float64 values in whole Rupiah. Allocation keeps full
// precision; RoundAmount is applied when a session is persisted and again by
// the display helpers.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// ParseNumber reads a form number leniently.
//
// The first comma is treated as the decimal separator and the longest numeric
// prefix is parsed, so trailing units are ignored. Empty or non-numeric input
// yields 0.
//
// Examples:
//
//	ParseNumber("1,5")   -> 1.5
//	ParseNumber("2 jam") -> 2
//	ParseNumber("abc")   -> 0
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0
	}
	prefix := numericPrefix(s)
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// numericPrefix returns the longest prefix of s shaped like a decimal number:
// optional sign, digits, optional fraction and optional exponent.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			end = j
		}
	}
	return s[:end]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// RoundAmount rounds half up to the nearest whole currency unit.
func RoundAmount(v float64) float64 {
	return math.Floor(v + 0.5)
}

// FormatRupiah renders an amount as "Rp 1.234.567".
func FormatRupiah(v float64) string {
	return "Rp " + rupiahPrinter.Sprintf("%d", int64(RoundAmount(v)))
}

// PerHour returns the rounded amount per hour, treating zero hours as one.
func PerHour(amount, hours float64) float64 {
	if hours == 0 {
		hours = 1
	}
	return RoundAmount(amount / hours)
}

// PercentOf turns a portion into a percentage with one decimal.
func PercentOf(portion float64) float64 {
	return RoundAmount(portion*1000) / 10
}
