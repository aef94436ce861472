package llm

import "strings"

// fallbackRule 是回复表中的一项：消息包含任一关键词即命中。
// 规则按序匹配，先命中先生效，表尾的默认项兜底。
// 关键词列表是可调整的数据，不是固定契约。
type fallbackRule struct {
	keywords []string
	text     string
}

// replyRules 是本地助手回复的规则表。
var replyRules = []fallbackRule{
	{
		keywords: []string{"eiee", "epilepsy", "seizure"},
		text: `I understand you're concerned about EIEE (Early Infantile Epileptic Encephalopathy). This is understandably very frightening for any parent. EIEE is a rare but serious condition that typically appears in the first few months of life with seizures that can be difficult to control.

While I'm having technical difficulties accessing my full knowledge base right now, I want you to know that:

• Your medical team is the best resource for specific information about your baby's condition and treatment plan
• Many families have walked this path before you, and support is available
• Each baby's journey with EIEE is unique, and treatments continue to improve
• It's completely normal to feel overwhelmed, scared, and uncertain

Please don't hesitate to ask your neurologist or neonatologist about:
- Treatment options and their goals
- What to expect in the coming days/weeks
- Support resources for families
- How you can best support your baby

You're not alone in this journey. Your love and advocacy for your baby matters tremendously.`,
	},
	{
		keywords: []string{"breathing", "ventilator", "oxygen"},
		text: `I understand you have concerns about your baby's breathing. This is one of the most common and frightening aspects of NICU care for parents. While I'm having technical difficulties right now, I want to reassure you that breathing support is very common in the NICU, and the medical team is closely monitoring your baby.

Please speak with your nurse or doctor about:
- What type of breathing support your baby is receiving
- What the monitors and alarms mean
- How your baby is progressing
- When changes to breathing support might be expected

Your presence and voice can be comforting to your baby, even with breathing equipment. You're doing everything right by being there and asking questions.`,
	},
	{
		keywords: []string{"feeding", "tube", "milk"},
		text:     `Feeding concerns are very common in the NICU. Whether it's about tube feeding, breastfeeding, or formula, know that the medical team will work with you to find the best approach for your baby. While I'm having technical difficulties, I encourage you to discuss your feeding goals and concerns with your baby's care team. They can provide specific guidance based on your baby's needs and development.`,
	},
	{
		keywords: []string{"scared", "afraid", "worried", "anxious"},
		text: `Your feelings are completely valid and normal. The NICU experience is overwhelming, and it's natural to feel scared, worried, or anxious. While I'm having technical difficulties right now, I want you to know that you're not alone. Many parents have felt exactly what you're feeling.

Consider reaching out to:
- Your baby's social worker or family support coordinator
- Other NICU parents (many hospitals have support groups)
- A counselor who specializes in medical trauma
- Your own support network of family and friends

Taking care of your emotional well-being is important for both you and your baby. You're being the best parent you can be in an incredibly difficult situation.`,
	},
}

// defaultFallbackReply 是未命中任何分档时的兜底回复。
const defaultFallbackReply = `I'm experiencing technical difficulties right now, but I want you to know that your concerns are valid and important. The NICU journey is incredibly challenging, and it's completely normal to feel overwhelmed.

Please don't hesitate to speak directly with your baby's medical team about any questions or worries you have. They are there to support you and provide the specific guidance you need.

You're doing an amazing job navigating this challenging journey. Your love and presence matter more than you know.`

// titleRules 是本地标题的规则表。标题分档比回复分档更细，
// 两张表各自独立维护。
var titleRules = []fallbackRule{
	{keywords: []string{"eiee", "epilepsy"}, text: "EIEE Support"},
	{keywords: []string{"breathing", "ventilator"}, text: "Breathing Concerns"},
	{keywords: []string{"feeding", "milk"}, text: "Feeding Questions"},
	{keywords: []string{"scared", "worried"}, text: "Emotional Support"},
	{keywords: []string{"home", "discharge"}, text: "Going Home"},
	{keywords: []string{"first", "new"}, text: "First NICU Day"},
}

// defaultFallbackTitle 是未命中任何分档时的兜底标题。
const defaultFallbackTitle = "NICU Support Chat"

// FallbackReply 返回用户消息对应的本地回复。
// 匹配完全由消息内容决定：同一输入永远得到同一条回复。
func FallbackReply(userMessage string) string {
	if text, ok := firstMatch(replyRules, userMessage); ok {
		return text
	}
	return defaultFallbackReply
}

// FallbackTitle 返回首条消息对应的本地标题。
func FallbackTitle(firstMessage string) string {
	if text, ok := firstMatch(titleRules, firstMessage); ok {
		return text
	}
	return defaultFallbackTitle
}

// firstMatch 在规则表中自上而下查找第一条命中的规则。
func firstMatch(rules []fallbackRule, message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.text, true
			}
		}
	}
	return "", false
}
