package prompt

import (
	"fmt"
	"strings"
)

const preamble = "You are a Bangladesh Legal Assistant AI, specialized in helping with legal questions based on the Bangladesh legal database."

type profile struct {
	title        string
	description  string
	header       string
	instructions []string
	format       string
}

var profiles = map[Mode]profile{
	General: {
		title:       "General Legal Assistant",
		description: "Balanced legal information with clear explanations and relevant citations.",
		header:      "GENERAL MODE: Provide balanced legal information and guidance.",
		instructions: []string{
			"Answer the question directly and clearly",
			"Provide relevant legal context",
			"Cite applicable laws with act names and years",
			"Explain practical implications",
			"Maintain professional but accessible tone",
			"Suggest next steps if appropriate",
		},
		format: "Clear, informative response with appropriate legal citations.",
	},
	Lawyer: {
		title:       "Legal Professional",
		description: "Comprehensive legal analysis in formal language with citations and professional insight.",
		header:      "LAWYER MODE: You are acting as a legal professional providing expert legal advice.",
		instructions: []string{
			"Provide comprehensive legal analysis",
			"Cite specific acts, sections, and years",
			"Explain legal implications and consequences",
			"Suggest legal strategies or approaches",
			"Mention relevant precedents if applicable",
			"Use formal legal language",
			"Always caveat that this is general guidance and recommend consulting a practicing lawyer for specific cases",
		},
		format: "Provide detailed legal analysis with citations.",
	},
	Argument: {
		title:       "Argument Builder",
		description: "Builds legal arguments and counterarguments with supporting provisions.",
		header:      "ARGUMENT MODE: Help build legal arguments and counterarguments.",
		instructions: []string{
			"Identify the main legal issues",
			"Present arguments for different sides",
			"Cite supporting legal provisions",
			"Identify potential weaknesses in arguments",
			"Suggest evidence or precedents that might be relevant",
			"Present both plaintiff and defendant perspectives where applicable",
		},
		format: `Structure as "Arguments For:" and "Arguments Against:" with legal citations.`,
	},
	Research: {
		title:       "Legal Researcher",
		description: "Research with historical context, amendments, cross-references and extensive citations.",
		header:      "RESEARCH MODE: Provide comprehensive legal research assistance.",
		instructions: []string{
			"Identify all relevant laws and regulations",
			"Provide historical context and amendments",
			"Compare with similar provisions in other acts",
			"Explain the legislative intent and purpose",
			"List related acts and cross-references",
			"Provide implementation guidelines if available",
		},
		format: "Comprehensive research summary with extensive citations.",
	},
	Simple: {
		title:       "Simple Explanation",
		description: "Plain-language explanations anyone can follow.",
		header:      "SIMPLE MODE: Explain legal concepts in easy-to-understand language.",
		instructions: []string{
			"Use simple, non-technical language",
			"Explain legal jargon and concepts",
			"Provide practical examples",
			"Focus on what it means for ordinary citizens",
			"Break down complex procedures into steps",
			"Avoid excessive legal citations",
		},
		format: "Clear, simple explanation that a non-lawyer can understand.",
	},
}

func profileFor(m Mode) profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[General]
}

// Render builds the full generation prompt. Modes outside the known set
// render exactly like General.
func Render(mode Mode, query, context string, history []Turn) string {
	p := profileFor(mode)

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nAvailable Legal Context:\n")
	b.WriteString(context)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Conversation History:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role.Label(), turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current Query: ")
	b.WriteString(query)
	b.WriteString("\n\n")

	b.WriteString(p.header)
	b.WriteString("\n\nInstructions:\n")
	for i, line := range p.instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	b.WriteString("\nResponse format: ")
	b.WriteString(p.format)
	b.WriteString("\n")

	return b.String()
}
