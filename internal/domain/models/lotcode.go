package models

import "strings"

const unknownSegment = "UNK"

// LotCodeInput carries the lot attributes the identifier is derived from.
type LotCodeInput struct {
	Variety    string
	LotNumber  string
	BagNumber  string
	StoredDate string
	Location   string
}

// GenerateLotCode derives the natural key shared by a lot, its withdrawal
// entries and its QR label: variety-lot-bag-storedDate-location.
func GenerateLotCode(in LotCodeInput) string {
	return strings.Join([]string{
		segment(in.Variety),
		segment(in.LotNumber),
		segment(in.BagNumber),
		segment(in.StoredDate),
		LocationAbbrev(in.Location),
	}, "-")
}

// LotCodeInputFor extracts the code inputs from a lot.
func LotCodeInputFor(lot SeedLot) LotCodeInput {
	return LotCodeInput{
		Variety:    lot.Variety,
		LotNumber:  lot.LotNumber,
		BagNumber:  lot.BagNumber,
		StoredDate: lot.StoredDate,
		Location:   lot.Location,
	}
}

// LocationAbbrev shortens a storage location for use in lot codes.
func LocationAbbrev(location string) string {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return unknownSegment
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "conventional"):
		return "C"
	case strings.Contains(lower, "organic"):
		return "O"
	case strings.Contains(lower, "plant nursery"):
		return "PM"
	}

	runes := []rune(trimmed)
	if len(runes) <= 3 {
		return trimmed
	}
	return string(runes[:3])
}

func segment(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return unknownSegment
	}
	return trimmed
}
