package api

import (
	"strings"
	"testing"
)

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload Validator
		wantErr bool
	}{
		{"login with name", LoginPayload{Name: "Аня"}, false},
		{"login with token only", LoginPayload{Token: "abc"}, false},
		{"login empty", LoginPayload{Name: "   "}, true},
		{"login long name", LoginPayload{Name: strings.Repeat("я", 33)}, true},
		{"exit", ExitPayload{Exit: "north"}, false},
		{"exit empty", ExitPayload{}, true},
		{"attack target", AttackPayload{TargetID: "npc/goblin#1"}, false},
		{"attack skill only", AttackPayload{Skill: "power_strike"}, false},
		{"attack empty", AttackPayload{}, true},
		{"say", SayPayload{Text: "привет"}, false},
		{"say blank", SayPayload{Text: " "}, true},
		{"say too long", SayPayload{Text: strings.Repeat("a", MaxSayLength+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
