package coach

import (
	"fmt"
	"strconv"
	"strings"

	"dietitian/internal/app/profile"
)

// chatPromptFormat frames every question with the user's profile, retrieved
// food facts and the recent conversation, then asks for a short answer.
const chatPromptFormat = `You are a nutrition and fitness coach. Answer the question based on the following information:
Use emojis like 🍎🥦🍗🍰 to make the answer engaging.
Format the response as a numbered list if multiple items are present.
Remember all information and use it in future conversations.

- Weight: %s kg
- Height: %s cm
- Age: %d years
- Gender: %s
- Activity Level: %s
- Food Data:
%s

Conversation so far:
%s

User Question: %s
Answer in a concise and helpful manner:`

// imagePrompt asks for an itemized calorie estimate of a meal photo.
const imagePrompt = "You are a certified nutritionist. Carefully analyze this food image. " +
	"List each food item you see, estimate the calories for each item and the total calories. " +
	"Include portion size estimates and any basic nutrition advice for a healthy diet. " +
	"Respond in clear, concise language suitable for a user who wants to track their daily intake. " +
	"Use emojis like 🍎🥦🍗🍰 to make it engaging."

// buildPrompt renders the chat prompt for one turn. Profile fields a user
// never supplied render as zero values rather than being dropped, so the
// prompt shape stays stable across users.
func buildPrompt(rec *profile.Record, foodContext, question string) string {
	var weight, height float64
	var age int
	if rec.Weight != nil {
		weight = *rec.Weight
	}
	if rec.Height != nil {
		height = *rec.Height
	}
	if rec.Age != nil {
		age = *rec.Age
	}
	return fmt.Sprintf(chatPromptFormat,
		formatNumber(weight),
		formatNumber(height),
		age,
		rec.Gender,
		rec.ActivityLevel,
		foodContext,
		historyBlock(rec.Chats),
		question,
	)
}

// historyBlock renders the most recent exchanges the way the model saw them
// in earlier turns.
func historyBlock(chats []profile.Exchange) string {
	if len(chats) > historyTurns {
		chats = chats[len(chats)-historyTurns:]
	}
	lines := make([]string, 0, len(chats))
	for _, ex := range chats {
		lines = append(lines, fmt.Sprintf("User: %s\nBot: %s", ex.User, ex.Bot))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
