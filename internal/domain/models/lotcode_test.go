package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLotCode(t *testing.T) {
	tests := []struct {
		name     string
		input    LotCodeInput
		expected string
	}{
		{
			name: "all fields present",
			input: LotCodeInput{
				Variety: "NSIC Rc222", LotNumber: "L12", BagNumber: "3",
				StoredDate: "2024-03-01", Location: "Conventional Field A",
			},
			expected: "NSIC Rc222-L12-3-2024-03-01-C",
		},
		{
			name:     "missing fields become UNK",
			input:    LotCodeInput{Variety: "Diamante", StoredDate: "2024-03-01"},
			expected: "Diamante-UNK-UNK-2024-03-01-UNK",
		},
		{
			name:     "whitespace only counts as missing",
			input:    LotCodeInput{Variety: "  ", LotNumber: "7", BagNumber: "\t", StoredDate: "", Location: " "},
			expected: "UNK-7-UNK-UNK-UNK",
		},
		{
			name:     "organic location",
			input:    LotCodeInput{Variety: "V", LotNumber: "1", BagNumber: "1", StoredDate: "d", Location: "ORGANIC plot"},
			expected: "V-1-1-d-O",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateLotCode(tt.input))
		})
	}
}

func TestGenerateLotCode_Deterministic(t *testing.T) {
	in := LotCodeInput{Variety: "Pusa", LotNumber: "9", Location: "Greenhouse"}

	first := GenerateLotCode(in)
	second := GenerateLotCode(in)

	assert.Equal(t, first, second)
	assert.Equal(t, "Pusa-9-UNK-UNK-Gre", first)
}

func TestLocationAbbrev(t *testing.T) {
	tests := []struct {
		location string
		expected string
	}{
		{"conventional", "C"},
		{"Conventional Farm", "C"},
		{"organic", "O"},
		{"Certified Organic Block", "O"},
		{"Plant Nursery", "PM"},
		{"the plant nursery shed", "PM"},
		{"Greenhouse", "Gre"},
		{"Lab", "Lab"},
		{"B2", "B2"},
		{"", "UNK"},
		{"   ", "UNK"},
		{"Ñandú", "Ñan"},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.expected, LocationAbbrev(tt.location))
		})
	}
}
