package internal_policy

import (
	"strings"
	"testing"

	internal_entity "github.com/rapidaai/outreach/api/call-api/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestGreetingUsesFirstConditionSegment(t *testing.T) {
	p := New("Clinical Research Associates", "+1234567890")
	td := &internal_entity.TrialData{
		ParticipantName: "Alex",
		TrialName:       "Chronic Kidney Disease & Oncology",
	}

	greeting := p.Greeting(td)
	assert.Contains(t, greeting, "Hi Alex, this is Jocelyn.")
	assert.Contains(t, greeting, "a Chronic Kidney Disease clinical trial")
	assert.NotContains(t, greeting, "Oncology")
	assert.Contains(t, greeting, "Is now a good time?")
}

func TestGreetingDefaults(t *testing.T) {
	p := New("Clinical Research Associates", "+1234567890")
	greeting := p.Greeting(&internal_entity.TrialData{})

	assert.Contains(t, greeting, "Hi there, this is Jocelyn.")
	assert.Contains(t, greeting, "about a clinical trial.")
}

func TestRenderSubstitutesTrialData(t *testing.T) {
	p := New("Clinical Research Associates", "+1234567890")
	td := &internal_entity.TrialData{
		ParticipantName:  "Alex",
		TrialName:        "Diabetes Study",
		CompensationInfo: "$3,000 over 6 months",
	}

	rendered := p.Render(td)
	assert.Contains(t, rendered, "Participant Name: Alex")
	assert.Contains(t, rendered, "Trial Name: Diabetes Study")
	assert.Contains(t, rendered, "Compensation: $3,000 over 6 months")
	assert.Contains(t, rendered, "Trial Description: Not provided")
	assert.Contains(t, rendered, "Clinical Research Associates | +1234567890")
	assert.NotContains(t, rendered, "{")
}

func TestRenderMentionsToolContract(t *testing.T) {
	p := New("org", "+1")
	rendered := p.Render(&internal_entity.TrialData{})

	assert.Contains(t, rendered, ToolDetectedAnsweringMachine)
	assert.Contains(t, rendered, ToolEndCallSuccessful)
	assert.Contains(t, rendered, ToolMarkContacted)
	for _, phrase := range VoicemailPhrases {
		assert.Contains(t, rendered, phrase)
	}
}

func TestRenderCustomTemplate(t *testing.T) {
	p := New("org", "+1")
	p.Template = "Say hello to {participant_name} about {trial_name}."

	rendered := p.Render(&internal_entity.TrialData{ParticipantName: "Sam", TrialName: "X"})
	assert.Equal(t, "Say hello to Sam about X.", rendered)
}

func TestRenderCustomAgentName(t *testing.T) {
	p := New("org", "+1")
	p.AgentName = "Morgan"

	greeting := p.Greeting(&internal_entity.TrialData{})
	assert.True(t, strings.Contains(greeting, "this is Morgan"))
}
