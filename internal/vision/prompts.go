package vision

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed prompts/*.txt
var promptsFS embed.FS

const (
	systemPromptFile = "ocr_system.txt"
	userPromptFile   = "ocr_user.txt"
)

// LoadPrompts reads the OCR system and user prompts. When dir is non-empty,
// files found there override the embedded defaults so prompts can be tuned
// without rebuilding.
func LoadPrompts(dir string) (Prompts, error) {
	system, err := loadPrompt(dir, systemPromptFile)
	if err != nil {
		return Prompts{}, err
	}
	user, err := loadPrompt(dir, userPromptFile)
	if err != nil {
		return Prompts{}, err
	}
	return Prompts{System: system, User: user}, nil
}

func loadPrompt(dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
	}

	data, err := promptsFS.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded prompt %s: %w", name, err)
	}
	return string(data), nil
}
