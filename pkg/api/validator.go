package api

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// MaxSayLength ограничивает длину реплики.
const MaxSayLength = 500

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p LoginPayload) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" && p.Token == "" {
		return errors.New("name or token is required")
	}
	if utf8.RuneCountInString(name) > 32 {
		return errors.New("name is too long")
	}
	return nil
}

func (p ExitPayload) Validate() error {
	if strings.TrimSpace(p.Exit) == "" {
		return errors.New("exit is required")
	}
	return nil
}

func (p AttackPayload) Validate() error {
	if p.TargetID == "" && p.Skill == "" {
		return errors.New("targetId or skill is required")
	}
	return nil
}

func (p SayPayload) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("text is required")
	}
	if utf8.RuneCountInString(p.Text) > MaxSayLength {
		return errors.Errorf("text is longer than %d characters", MaxSayLength)
	}
	return nil
}
