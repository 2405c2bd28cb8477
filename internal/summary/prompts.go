package summary

import (
	"fmt"

	"github.com/readee-ai/docproc/internal/model"
)

const (
	markerShort    = "===SHORT==="
	markerMedium   = "===MEDIUM==="
	markerDetailed = "===DETAILED==="
)

const systemPrompt = "You are a careful summarization assistant. " +
	"Summarize only what the text actually says. Do not add facts, opinions, or filler. " +
	"Write in the same language as the document."

func instructionFor(level model.Level) string {
	switch level {
	case model.LevelShort:
		return "Summarize the text below in 3-5 bullet points, only the most essential facts. " +
			"Each bullet starts with \"- \"."
	case model.LevelMedium:
		return "Summarize the text below in 6-9 bullet points, including context and secondary details. " +
			"Each bullet starts with \"- \"."
	case model.LevelDetailed:
		return "Summarize the text below in 1-2 compact paragraphs. " +
			"Use normal sentences, no bullet points."
	}
	return "Summarize the text below."
}

func singlePrompt(level model.Level, text string) string {
	return fmt.Sprintf("%s\n\nText:\n%s", instructionFor(level), text)
}

func triplePrompt(text string) string {
	return "You are a summarization assistant. Given the document below, produce three summaries:\n\n" +
		"[1] SHORT SUMMARY: 3-5 bullet points, only the most essential facts.\n" +
		"    - Use bullet points that start with \"- \".\n" +
		"    - This must be the shortest summary.\n\n" +
		"[2] MEDIUM SUMMARY: 6-9 bullet points, with more structure and detail than the short summary.\n" +
		"    - Use bullet points that start with \"- \".\n" +
		"    - Include more context and secondary details than the short summary.\n\n" +
		"[3] DETAILED SUMMARY: 1-2 compact paragraphs that are longer and more detailed than the medium summary.\n" +
		"    - Use normal sentences in paragraphs.\n" +
		"    - Absolutely do NOT use bullet points in the detailed summary.\n" +
		"    - The detailed summary MUST be the longest of the three.\n\n" +
		"Global rules:\n" +
		"- Each summary must be different and reflect a different level of detail.\n" +
		"- Do NOT copy or reuse the same sentences between summaries.\n" +
		"- You may reuse important names or terms, but the sentences themselves must be different.\n\n" +
		"Output format (exactly):\n" +
		markerShort + "\n" +
		"...short summary here...\n" +
		markerMedium + "\n" +
		"...medium summary here...\n" +
		markerDetailed + "\n" +
		"...detailed summary here...\n\n" +
		"Document:\n" + text
}
