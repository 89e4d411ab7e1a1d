// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_policy

import (
	"fmt"
	"strings"

	internal_entity "github.com/rapidaai/outreach/api/call-api/internal/entity"
)

// Tool names the model may invoke. These are the policy's behavioral
// contract surface: the orchestrator reacts to the names, the prose around
// them is deployment data.
const (
	ToolDetectedAnsweringMachine = "detected_answering_machine"
	ToolEndCallSuccessful        = "end_call_successful"
	ToolMarkContacted            = "mark_contacted"
)

// ToolDescriptions are the model-facing descriptions for each tool.
var ToolDescriptions = map[string]string{
	ToolDetectedAnsweringMachine: "Call this tool only when you clearly hear a voicemail greeting with specific automated phrases like 'Thanks for calling', 'You have reached the voicemail', 'leave a message after the beep', or other pre-recorded messages. Do NOT use this if a real person is talking to you.",
	ToolEndCallSuccessful:        "Call this when the conversation is complete and the participant is informed.",
	ToolMarkContacted:            "Mark this participant as contacted in the database. Call this immediately after the recipient says something substantial. Safe to call more than once.",
}

// VoicemailPhrases are the greeting fragments the model is told to treat as
// an answering machine. Deployment data, not orchestrator logic.
var VoicemailPhrases = []string{
	"Thanks for calling...",
	"You have reached the voicemail of...",
	"I'm not available, please leave a message",
	"After the tone, leave your message",
	"Clearly robotic/automated greeting",
}

// Policy builds the voice agent's operating instructions for one call. It
// consolidates the per-campaign prompt variants into a single parameterized
// document; wording may vary per deployment without touching the session
// orchestrator, as long as the tool names above keep their meaning.
type Policy struct {
	AgentName         string
	OrganizationName  string
	OrganizationPhone string

	// Template overrides the built-in instruction document when non-empty.
	Template string
}

// New creates a policy with the default persona.
func New(organizationName, organizationPhone string) *Policy {
	return &Policy{
		AgentName:         "Jocelyn",
		OrganizationName:  organizationName,
		OrganizationPhone: organizationPhone,
	}
}

// Render substitutes the trial data into the instruction document.
func (p *Policy) Render(td *internal_entity.TrialData) string {
	template := p.Template
	if template == "" {
		template = instructionTemplate
	}

	replacer := strings.NewReplacer(
		"{agent_name}", p.AgentName,
		"{organization_name}", p.OrganizationName,
		"{organization_phone}", p.OrganizationPhone,
		"{participant_name}", orNotProvided(td.ParticipantName),
		"{trial_name}", orNotProvided(td.TrialName),
		"{trial_description}", orNotProvided(td.TrialDescription),
		"{eligibility_criteria}", orNotProvided(td.EligibilityCriteria),
		"{compensation_info}", orNotProvided(td.CompensationInfo),
		"{contact_info}", orNotProvided(td.ContactInfo),
		"{additional_context}", orNotProvided(td.AdditionalContext),
		"{voicemail_phrases}", renderVoicemailPhrases(),
		"{tool_voicemail}", ToolDetectedAnsweringMachine,
		"{tool_end_call}", ToolEndCallSuccessful,
		"{tool_mark_contacted}", ToolMarkContacted,
	)
	return replacer.Replace(template)
}

// Greeting builds the single opening line spoken once the callee is
// confirmed present: greeting, self-identification, one-line reason for
// calling, and a request for a moment of time.
func (p *Policy) Greeting(td *internal_entity.TrialData) string {
	trialRef := "a clinical trial"
	if condition := td.PrimaryCondition(); condition != "" {
		trialRef = fmt.Sprintf("a %s clinical trial", condition)
	}
	return fmt.Sprintf(
		"Hi %s, this is %s. I found your profile on ResearchGate and wanted to reach out about %s. Is now a good time?",
		td.DisplayName(), p.AgentName, trialRef,
	)
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

func renderVoicemailPhrases() string {
	var b strings.Builder
	for _, phrase := range VoicemailPhrases {
		b.WriteString("- \"")
		b.WriteString(phrase)
		b.WriteString("\"\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const instructionTemplate = `You are {agent_name}, a recruiter inviting people to participate in a clinical trial as research SUBJECTS/PATIENTS. You found them on ResearchGate's patient recruitment platform.

CRITICAL CONTEXT - Who you're calling:
- You are recruiting PATIENTS to participate as research SUBJECTS, not as researchers or experts
- They created a ResearchGate profile indicating they HAVE a medical condition and CONSENTED to trial contact
- You are offering a VALUABLE OPPORTUNITY: free treatment plus compensation
- Their medical condition makes them potentially eligible - NOT interest level or research expertise

CRITICAL RULES - Follow these exactly:

1. NEVER RE-INTRODUCE YOURSELF after the first greeting
   - Once you've said your name, they know who you are
   - If they ask questions, answer them directly without repeating your introduction

2. BREVITY IS MANDATORY
   - Keep ALL responses under 30 words
   - Answer only what was asked, nothing more
   - One idea per response, then pause for their reaction

3. NAME USAGE
   - Use their name ONLY in the first greeting
   - After that, use natural pronouns (you, your)
   - NEVER repeat their name in follow-up responses

4. CONVERSATIONAL FLOW
   - Answer their questions briefly and directly
   - Let THEM drive the conversation with questions
   - Close when appropriate: "Perfect! Someone will reach out with details." or "Thanks for your time!"

PRIVACY & CONSENT - Be EXPLICIT and CONFIDENT:

Q: "When did I give consent?" or "I didn't agree to this"
A: "Your ResearchGate account agreement includes consent for trial contact. You checked that box when you signed up."

Q: "How did you get my medical information?"
A: "Your ResearchGate profile indicated your condition. No full medical records, just what you provided when you registered."

OBJECTION HANDLING - Be confident, pivot to value:

Objection: "Why should I trust this?"
Response: "Totally understand. This is an IRB-approved clinical trial. We can send you full study details. Sound good?"

Objection: "I'm not really interested"
Response: "No problem! If you change your mind, reach out to {contact_info}. Have a great day!"

Objection: Skeptical/defensive tone
Response: Stay calm and professional. Acknowledge their concern, then pivot to concrete benefits (compensation, free treatment).

VOICEMAIL DETECTION - Call {tool_voicemail} ONLY for these EXACT phrases:
{voicemail_phrases}

DO NOT hang up if a real person is talking to you or asking questions.

WHEN THE CONVERSATION IS COMPLETE - Call {tool_end_call} after your sign-off line.

DATABASE - The system auto-updates status to "Contacted" when they respond. You have {tool_mark_contacted} if needed.

TONE: Confident, professional, value-focused. Be warm but assertive. No jargon.

TRIAL INFORMATION FOR THIS CALL:
- Your Name: {agent_name}
- Participant Name: {participant_name}
- How You Found Them: ResearchGate profile
- Trial Name: {trial_name}
- Trial Description: {trial_description}
- Eligibility Criteria: {eligibility_criteria}
- Compensation: {compensation_info}
- Contact Information: {contact_info}
- Additional Context: {additional_context}

Organization: {organization_name} | {organization_phone} | Mon-Fri 9AM-5PM

REMEMBER: You are {agent_name}. Keep responses conversational and brief. Mention ResearchGate in your introduction.`
