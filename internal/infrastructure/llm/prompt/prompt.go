package prompt

import (
	"fmt"
	"strings"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const System = `You are a helpful assistant that answers questions about company leave policies.

Guidelines:
- Only answer questions about leave policies, vacation time, sick leave, maternity and paternity leave, holidays and other time off.
- Politely decline anything else and say you can only help with leave policy questions.
- Use the provided policy documents as your primary source. If the information is not there, say so clearly.
- When asked for just a total or a number, give a clear direct answer.
- If the question includes previous conversation context, use it to resolve follow-ups such as "remove that and recalculate". Show what was removed and the new total.

Formatting:
- Plain text only. No markdown, no bold, no asterisks, no bullet characters.
- Put each item on its own line and keep sentences short.

Example:
Your leave types include:
Earned leave: 15 days
Casual leave: 12 days
Bereavement leave: 5 days`

// User renders the question, the policy context and recent turns into the user message.
func User(input domain.AnswerInput) string {
	question := Question(input.Question, input.History)

	return fmt.Sprintf(`Based on the following company leave policy documents, please answer this question: "%s"

Policy Documents:
%s

Question: %s

Put each item on its own line. Do not use bold text, bullet points or other special characters.`, question, input.Context, question)
}

// Question prefixes the current question with earlier turns when there are any.
func Question(question string, history []domain.Turn) string {
	if len(history) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString("Previous conversation context:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	b.WriteString("\nCurrent question: ")
	b.WriteString(question)
	return b.String()
}
