package generation

import (
	"fmt"
	"strings"
)

// systemPrompt frames every generation call.
const systemPrompt = "You are a helpful AI assistant specialized in creating high-quality " +
	"marketing and general content. You provide clear, engaging, and professional responses."

const marketingCopyTemplate = `Write compelling marketing copy for %s's '%s' campaign.

Objective: %s
%sGenerate engaging marketing copy that captures attention and drives action:`

const planningTemplate = `Analyze the campaign request for '%s' campaign '%s'.

Objective: %s

Create a detailed plan that specifies:
1. A specific text prompt for marketing copy.
2. A specific image prompt for visual assets.

Format the output clearly so the next agent can understand.`

// BuildMarketingCopyPrompt renders the copywriting prompt. An empty
// audience drops the audience line entirely; guideline context, when
// present, is prepended so the model reads brand rules before the task.
func BuildMarketingCopyPrompt(req Request) string {
	audienceSection := ""
	if req.Audience != "" {
		audienceSection = fmt.Sprintf("Target Audience: %s\n", req.Audience)
	}

	prompt := fmt.Sprintf(marketingCopyTemplate,
		req.Brand, req.CampaignName, req.Objective, audienceSection)

	if strings.TrimSpace(req.GuidelineContext) != "" {
		return req.GuidelineContext + "\n\n" + prompt
	}
	return prompt
}

// BuildPlanningPrompt renders the campaign-planning prompt.
func BuildPlanningPrompt(brand, campaignName, objective string) string {
	return fmt.Sprintf(planningTemplate, brand, campaignName, objective)
}
