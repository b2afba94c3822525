package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createRedactTool returns the redact_patient_info tool definition
func createRedactTool() mcp.Tool {
	return mcp.NewTool("redact_patient_info",
		mcp.WithDescription("SECURITY TOOL: removes patient names, identifiers, dates and contact details from a medical report before it is sent to an external model"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Clinical text to sanitize"),
		),
	)
}

// createGuidelinesTool returns the check_trusted_guidelines tool definition
func createGuidelinesTool() mcp.Tool {
	return mcp.NewTool("check_trusted_guidelines",
		mcp.WithDescription("GOVERNANCE TOOL: looks up a condition in the hospital approved guideline table"),
		mcp.WithString("condition",
			mcp.Required(),
			mcp.Description("Condition name, e.g. \"High BP\" or \"low_vitamin_d\""),
		),
	)
}

// createAssessRiskTool returns the assess_risk tool definition
func createAssessRiskTool() mcp.Tool {
	return mcp.NewTool("assess_risk",
		mcp.WithDescription("Grades clinical text as CRITICAL, MODERATE or STABLE with the fixed recommended action"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Clinical text to grade"),
		),
	)
}

// createFindProtocolsTool returns the find_protocols tool definition
func createFindProtocolsTool() mcp.Tool {
	return mcp.NewTool("find_protocols",
		mcp.WithDescription("Returns the hospital protocol citations whose keywords occur in the text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Clinical text to match against the protocol table"),
		),
	)
}
