package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
)

const roleUser = "user"

func userPrompt(description, text string) *protocol.GetPromptResult {
	return &protocol.GetPromptResult{
		Description: description,
		Messages: []protocol.PromptMessage{{
			Role:    roleUser,
			Content: protocol.TextContent(text),
		}},
	}
}

func explainConceptPrompt() registry.Prompt {
	return registry.Prompt{
		Name: "explain-concept",
		Metadata: registry.Metadata{
			Title:       "Concept Explanation",
			Description: "Generate a detailed explanation of a technical concept",
		},
		Arguments: schema.Shape{
			{Name: "concept", Type: schema.TypeString, Required: true, Description: "The concept to explain"},
			{Name: "audience", Type: schema.TypeString, Description: "Target audience level",
				Default: "intermediate", Enum: []string{"beginner", "intermediate", "advanced"}},
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.GetPromptResult, error) {
			concept, audience := args.String("concept"), args.String("audience")
			text := fmt.Sprintf(`Please explain the concept of "%s" for a %s audience. Include:

1. A clear definition
2. Key characteristics or components
3. Real-world examples or use cases
4. Common misconceptions (if any)
5. Related concepts

Make the explanation accessible and engaging for the target audience level.`, concept, audience)
			return userPrompt(fmt.Sprintf("Explanation of %s for a %s audience", concept, audience), text), nil
		},
	}
}

func codeReviewPrompt() registry.Prompt {
	return registry.Prompt{
		Name: "code-review",
		Metadata: registry.Metadata{
			Title:       "Code Review",
			Description: "Perform a comprehensive code review",
		},
		Arguments: schema.Shape{
			{Name: "code", Type: schema.TypeString, Required: true, Description: "The code to review"},
			{Name: "language", Type: schema.TypeString, Required: true, Description: "Programming language of the code"},
			{Name: "focus", Type: schema.TypeString, Description: "Review focus area",
				Default: "all", Enum: []string{"security", "performance", "maintainability", "all"}},
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.GetPromptResult, error) {
			code, language, focus := args.String("code"), args.String("language"), args.String("focus")

			var points []string
			switch focus {
			case "security":
				points = []string{"Security vulnerabilities or concerns"}
			case "performance":
				points = []string{"Performance optimizations"}
			case "maintainability":
				points = []string{"Code maintainability and readability"}
			case "all":
				points = []string{
					"Security vulnerabilities or concerns",
					"Performance optimizations",
					"Code maintainability and readability",
					"Best practices adherence",
					"Potential bugs or issues",
				}
			default:
				return nil, fmt.Errorf("unsupported review focus %q", focus)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Please review this %s code with a focus on %s:\n\n", language, focus)
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", language, code)
			b.WriteString("Provide feedback on:\n")
			for _, p := range points {
				b.WriteString("- " + p + "\n")
			}
			b.WriteString("\nInclude specific recommendations for improvement.")

			return userPrompt(fmt.Sprintf("Code review of %s code focusing on %s", language, focus), b.String()), nil
		},
	}
}

func projectPlanningPrompt() registry.Prompt {
	return registry.Prompt{
		Name: "project-planning",
		Metadata: registry.Metadata{
			Title:       "Project Planning Assistant",
			Description: "Help plan and structure a project",
		},
		Arguments: schema.Shape{
			{Name: "projectType", Type: schema.TypeString, Required: true, Description: "Type of project (e.g., web app, mobile app, API)"},
			{Name: "requirements", Type: schema.TypeString, Required: true, Description: "Project requirements and goals"},
			{Name: "timeline", Type: schema.TypeString, Required: true, Description: "Expected timeline or deadline"},
			{Name: "teamSize", Type: schema.TypeString, Required: true, Description: "Number of team members"},
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.GetPromptResult, error) {
			a := args.Strings()
			text := fmt.Sprintf(`Help me plan a %s project with the following details:

**Requirements:** %s
**Timeline:** %s
**Team Size:** %s members

Please provide:
1. Project breakdown and milestones
2. Technology stack recommendations
3. Team role suggestions
4. Risk assessment and mitigation strategies
5. Timeline estimates for key phases
6. Development methodology recommendations

Consider best practices for project management and delivery.`, a["projectType"], a["requirements"], a["timeline"], a["teamSize"])
			return userPrompt("Project plan for a "+a["projectType"]+" project", text), nil
		},
	}
}
