package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		message  string
		expected CommandType
		args     []string
	}{
		{"/withdraw V-1-1-2024-01-01-C 25 sowing trial", CommandWithdraw, []string{"V-1-1-2024-01-01-C", "25", "sowing", "trial"}},
		{"W abc 1", CommandWithdraw, []string{"abc", "1"}},
		{"/stock Code-X", CommandStock, []string{"Code-X"}},
		{"/ALERTS", CommandAlerts, nil},
		{"help", CommandHelp, nil},
		{"hello there", CommandUnknown, []string{"there"}},
		{"   ", CommandUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			cmd := ParseCommand(tt.message)
			assert.Equal(t, tt.expected, cmd.Type)
			assert.Equal(t, tt.args, cmd.Args)
		})
	}
}

func TestParseInventoryType(t *testing.T) {
	assert.Equal(t, InventoryPlantingMaterials, ParseInventoryType("Planting Materials"))
	assert.Equal(t, InventoryPlantingMaterials, ParseInventoryType("PLANTING-MATERIALS"))
	assert.Equal(t, InventorySeedStorage, ParseInventoryType("Seed Storage"))
	assert.Equal(t, InventorySeedStorage, ParseInventoryType(""))
}
