package outbound

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// GenericFallbackText is sent when a non-sensitive job carries no usable text.
const GenericFallbackText = "You have a new message from us. Please check your account through our official app or website for details."

// Prompt is the neutral text sent in place of sensitive content until the recipient
// is verified.
type Prompt struct {
	Text    string `yaml:"text"`
	Subject string `yaml:"subject"`
}

var defaultPrompts = map[model.CampaignPurpose]Prompt{
	model.PurposeFraudAlert: {
		Text:    "We need to confirm some recent activity on your account. Please verify your identity by replying with the code we send you, or call the number on the back of your card.",
		Subject: "Please verify recent account activity",
	},
	model.PurposeKYCUpdate: {
		Text:    "We need to update some details on your account. Please verify your identity to continue.",
		Subject: "Action needed: verify your identity",
	},
	model.PurposeCollections: {
		Text:    "We have an important message about your account. Please verify your identity to view it.",
		Subject: "Important account message",
	},
	model.PurposeCaseFollowup: {
		Text:    "We have an update on your recent request. Please verify your identity to view the details.",
		Subject: "Update on your request",
	},
	model.PurposeServiceNotice: {
		Text:    "We have a message for you. Please verify your identity to view it.",
		Subject: "A message for you",
	},
}

var defaultSubjects = map[model.CampaignPurpose]string{
	model.PurposeFraudAlert:    "Security alert",
	model.PurposeKYCUpdate:     "Account details update",
	model.PurposeCollections:   "Account notice",
	model.PurposeCaseFollowup:  "Case update",
	model.PurposeServiceNotice: "Service notice",
}

// PromptCatalog resolves the verify prompt for a campaign purpose.
type PromptCatalog struct {
	prompts map[model.CampaignPurpose]Prompt
}

// DefaultPromptCatalog returns the built-in prompts.
func DefaultPromptCatalog() *PromptCatalog {
	prompts := make(map[model.CampaignPurpose]Prompt, len(defaultPrompts))
	for k, v := range defaultPrompts {
		prompts[k] = v
	}
	return &PromptCatalog{prompts: prompts}
}

// Prompt returns the verify prompt for purpose. Unknown purposes get the fraud alert
// prompt, which discloses nothing about the content.
func (c *PromptCatalog) Prompt(purpose model.CampaignPurpose) Prompt {
	if c != nil {
		if p, ok := c.prompts[purpose]; ok {
			return p
		}
	}
	return defaultPrompts[model.PurposeFraudAlert]
}

type promptFile struct {
	Prompts map[string]Prompt `yaml:"prompts"`
}

// LoadPromptCatalog reads YAML overrides on top of the defaults:
//
//	prompts:
//	  fraud_alert:
//	    text: "..."
//	    subject: "..."
func LoadPromptCatalog(r io.Reader) (*PromptCatalog, error) {
	catalog := DefaultPromptCatalog()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return catalog, nil
	}

	var file promptFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}

	for key, override := range file.Prompts {
		purpose := model.CampaignPurpose(strings.TrimSpace(key))
		if !purpose.Valid() {
			return nil, fmt.Errorf("prompt catalog: unknown purpose %q", key)
		}
		override.Text = strings.TrimSpace(override.Text)
		override.Subject = strings.TrimSpace(override.Subject)
		if override.Text == "" {
			return nil, fmt.Errorf("prompt catalog: %s: text is required", purpose)
		}
		if override.Subject == "" {
			override.Subject = catalog.prompts[purpose].Subject
		}
		catalog.prompts[purpose] = override
	}
	return catalog, nil
}

// LoadPromptCatalogFile loads overrides from path. An empty path yields the defaults.
func LoadPromptCatalogFile(path string) (*PromptCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPromptCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompt catalog: %w", err)
	}
	catalog, err := LoadPromptCatalog(f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = errors.Join(err, fmt.Errorf("close prompt catalog: %w", cerr))
	}
	return catalog, err
}
