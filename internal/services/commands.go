package services

// Global commands work from any step
const (
	CommandMenu      = "menu"
	CommandStart     = "inicio"
	CommandPrices    = "precios"
	CommandContact   = "contacto"
	CommandPortfolio = "portafolio"
)

// exitCommands end the conversation and drop the session
var exitCommands = map[string]bool{
	"salir":  true,
	"cerrar": true,
	"bye":    true,
	"adios":  true,
}

// interceptCommand answers exact global commands before the state machine runs
func (c *ConversationService) interceptCommand(identity, message string) (string, bool) {
	var reply string

	switch {
	case message == CommandMenu || message == CommandStart:
		c.sessions.Update(identity, StepUpdate(StepMainMenu))
		reply = c.replies.MainMenu()
	case exitCommands[message]:
		c.sessions.Remove(identity)
		reply = c.replies.Exit()
	case message == CommandPrices:
		reply = c.replies.PricesTable()
	case message == CommandContact:
		reply = c.replies.ContactInfo()
	case message == CommandPortfolio:
		reply = c.replies.PortfolioInfo()
	default:
		return "", false
	}

	c.metrics.IncCommand(message)
	return reply, true
}
