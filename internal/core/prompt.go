package core

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-threat-analyzer/internal/utils"
)

// SystemInstruction frames every verdict request
const SystemInstruction = "You are a cybersecurity expert specializing in email threat analysis. " +
	"Analyze the provided email data and return a JSON response with risk assessment."

const promptFormat = `Analyze this email for security threats and phishing indicators. Respond with a JSON object of this shape:

{
  "riskLevel": "LOW" | "MEDIUM" | "HIGH",
  "assessment": "explanation of the risk assessment",
  "confidence": number (0-100),
  "recommendations": ["specific", "actions"]
}

Email Data:
- From: %s
- To: %s
- Subject: %s
- Date: %s

Body (first %d characters):
%s

Links found: %d
%s
Attachments: %d
%s
Focus on:
1. Domain spoofing and suspicious URLs
2. Urgent language and social engineering tactics
3. Suspicious attachments
4. Grammar and spelling errors
5. Requests for sensitive information
6. Mismatched sender domains

Provide specific, actionable recommendations for security teams. Respond only with the JSON object.`

// BuildPrompt renders the bounded verdict request for msg. bodyChars caps
// how much of the body is embedded.
func BuildPrompt(msg *ParsedMessage, bodyChars int) VerdictRequest {
	var links strings.Builder
	for _, l := range msg.Links {
		fmt.Fprintf(&links, "- %s (%s)\n", l.URL, l.DisplayText)
	}

	var attachments strings.Builder
	for _, a := range msg.Attachments {
		fmt.Fprintf(&attachments, "- %s (%s)\n", a.Name, a.MimeType)
	}

	prompt := fmt.Sprintf(promptFormat,
		orDefault(msg.Headers.From, "Unknown"),
		orDefault(msg.Headers.To, "Unknown"),
		orDefault(msg.Headers.Subject, "No subject"),
		orDefault(msg.Headers.Date, "Unknown"),
		bodyChars,
		utils.TruncateRunes(msg.Body, bodyChars),
		len(msg.Links),
		links.String(),
		len(msg.Attachments),
		attachments.String(),
	)

	return VerdictRequest{
		SystemInstruction: SystemInstruction,
		Prompt:            prompt,
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
