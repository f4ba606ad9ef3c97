package summarize

import "fmt"

// systemInstruction fixes the domain framing for remote backends. The
// language name is interpolated so the model answers in the article's
// language.
const systemInstruction = "You are a professional news editor. Summarize the following editorial/opinion article in %s. Keep the summary concise but comprehensive, capturing the main arguments and key points."

// Per-language instruction templates. English is the fallback for languages
// without a template.
var promptTemplates = map[string]string{
	"en": "Please provide a concise summary of this editorial article in 2-3 sentences. Focus on the main argument, key points, and conclusion:\n\n%s",
	"hi": "कृपया इस संपादकीय लेख का संक्षिप्त सारांश 2-3 वाक्यों में प्रदान करें। मुख्य तर्क, मुख्य बिंदुओं और निष्कर्ष पर ध्यान दें:\n\n%s",
	"bn": "অনুগ্রহ করে এই সম্পাদকীয় নিবন্ধের একটি সংক্ষিপ্ত সারসংক্ষেপ ২-৩ বাক্যে প্রদান করুন। মূল যুক্তি, মূল বিষয় এবং উপসংহারের উপর মনোযোগ দিন:\n\n%s",
	"ta": "இந்த ஆசிரியர் கட்டுரையின் சுருக்கமான சுருக்கத்தை 2-3 வாக்கியங்களில் வழங்கவும். முக்கிய வாதம், முக்கிய புள்ளிகள் மற்றும் முடிவில் கவனம் செலுத்துங்கள்:\n\n%s",
	"mr": "कृपया या संपादकीय लेखाचा संक्षिप्त सारांश 2-3 वाक्यात द्या. मुख्य युक्तिवाद, मुख्य मुद्दे आणि निष्कर्षावर लक्ष केंद्रित करा:\n\n%s",
}

// BuildPrompt renders the instruction prompt for content in language.
func BuildPrompt(content, language string) string {
	template, ok := promptTemplates[language]
	if !ok {
		template = promptTemplates["en"]
	}
	return fmt.Sprintf(template, content)
}

// SystemInstruction renders the editor framing for language.
func SystemInstruction(language string) string {
	if language == "" {
		language = "en"
	}
	return fmt.Sprintf(systemInstruction, language)
}
