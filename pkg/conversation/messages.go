package conversation

// Fixed replies. They are HTML fragments rendered as-is by the web client.
const (
	MsgSearchModeOn  = "🔍 <strong>Mode recherche activé.</strong> Posez votre question :"
	MsgSearchModeOff = "🚪 <strong>Mode recherche désactivé.</strong> Vous pouvez continuer une conversation normale."
	MsgHelp          = "📋 <strong>Commandes disponibles :</strong><br><ul>" +
		"<li><code>/recherche</code> - Activer la recherche web</li>" +
		"<li><code>/quitter</code> - Quitter le mode recherche</li>" +
		"<li><code>/aide</code> - Voir cette aide</li>" +
		"</ul>"
	MsgNothingFound   = "Désolé, je n'ai rien trouvé sur ce sujet."
	MsgUnknownCommand = "Commande inconnue. Tapez <code>/aide</code> pour les options."
	MsgSearchReminder = "<strong>🧠 Mode recherche toujours actif. Tapez /quitter pour sortir.</strong> "
	MsgListening      = "👂 Je vous écoute, posez votre question."

	// confirmation flow
	MsgSuggestionPrompt = " Est-ce bien « %s » que vous cherchiez ? Répondez <strong>oui</strong> ou <strong>non</strong>."
	MsgConfirmSearch    = "👍 Très bien ! Quelle est votre question sur « %s » ?"
	MsgConfirmGeneric   = "D'accord ! Que puis-je faire pour vous ?"
	MsgDecline          = "Très bien. N'hésitez pas si vous avez une autre question."
)

// FallbackMessages are used when nothing else answered.
var FallbackMessages = []string{
	"Je n'ai pas compris. Essayez de reformuler !",
	"Pouvez-vous préciser votre demande ?",
	"Je ne sais pas répondre à cela. Essayez une autre question.",
	"Hum... Je ne suis pas sûr de comprendre.",
}

var (
	affirmativeTokens = map[string]struct{}{"oui": {}, "yes": {}, "ok": {}}
	negativeTokens    = map[string]struct{}{"non": {}, "no": {}}
)

func isAffirmative(lower string) bool {
	_, ok := affirmativeTokens[lower]
	return ok
}

func isNegative(lower string) bool {
	_, ok := negativeTokens[lower]
	return ok
}
