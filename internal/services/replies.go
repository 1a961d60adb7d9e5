package services

import (
	"fmt"
	"strings"

	"github.com/hembi12/whatbot/internal/catalog"
	"github.com/hembi12/whatbot/internal/config"
)

const notSpecified = "No especificado"

// Fixed prompts of the questionnaire
const (
	promptName        = "¡Perfecto! Necesito algunos datos para tu cotización:\n\n👤 ¿Cuál es tu nombre?"
	promptNameRetry   = "Vamos a corregir los datos.\n\n👤 ¿Cuál es tu nombre?"
	promptCompany     = "Gracias! 🏢 ¿Cuál es el nombre de tu empresa o proyecto?"
	promptEmail       = "Perfecto! 📧 ¿Cuál es tu email de contacto?"
	promptPhone       = "Excelente! 📱 ¿Cuál es tu número de teléfono?"
	promptDescription = "¡Casi terminamos! 📝 Describe brevemente tu proyecto (qué necesitas, colores, estilo, etc.):"

	invalidName        = "Por favor, ingresa un nombre válido (mínimo 2 caracteres)."
	invalidCompany     = "Por favor, ingresa un nombre de empresa válido (mínimo 2 caracteres)."
	invalidEmail       = "Por favor, ingresa un email válido (ejemplo: tu@email.com):"
	invalidPhone       = "Por favor, ingresa un número de teléfono válido (mínimo 8 dígitos)."
	invalidDescription = "Por favor, proporciona una descripción más detallada de tu proyecto (mínimo 10 caracteres)."

	newQuotationIntro = "¡Perfecto! Vamos con una nueva cotización:\n\n"
)

// Option lists repeated after an invalid choice
const (
	serviceDetailsOptions = "1️⃣ Sí, solicitar cotización\n2️⃣ Ver otro servicio\n3️⃣ Más información"
	summaryOptions        = "1️⃣ Sí, enviar cotización\n2️⃣ Modificar datos"
	quoteSentOptions      = "1️⃣ Solicitar otra cotización\n2️⃣ Finalizar conversación"
)

// keycap renders n as a keycap emoji, e.g. 1️⃣
func keycap(n int) string {
	return fmt.Sprintf("%d\uFE0F\u20E3", n)
}

// ReplyBuilder renders the bot's Spanish replies from the catalog and company details
type ReplyBuilder struct {
	catalog *catalog.Catalog
	company config.CompanyConfig
}

// NewReplyBuilder creates a reply builder
func NewReplyBuilder(cat *catalog.Catalog, company config.CompanyConfig) *ReplyBuilder {
	return &ReplyBuilder{
		catalog: cat,
		company: company,
	}
}

// Welcome greets a new correspondent
func (r *ReplyBuilder) Welcome() string {
	return fmt.Sprintf("¡Hola! 👋 Soy el asistente de %s\n", r.company.Name) +
		"Te ayudo a encontrar el servicio perfecto para tu proyecto.\n\n" +
		"Escribe \"cotizar\" para empezar 🚀\n\n" +
		"También puedes usar:\n" +
		"• \"precios\" - Ver lista de precios\n" +
		"• \"contacto\" - Información de contacto\n" +
		"• \"portafolio\" - Ver trabajos anteriores"
}

// MainMenu lists every catalog service
func (r *ReplyBuilder) MainMenu() string {
	var b strings.Builder
	b.WriteString("¿Qué tipo de sitio web necesitas?\n\n")
	for _, entry := range r.catalog.Entries() {
		fmt.Fprintf(&b, "%s %s %s (%s)\n", keycap(entry.ID), entry.Icon, entry.Title, entry.PriceUSD)
	}
	b.WriteString("\nResponde con el número de tu opción (ej: \"1\")")
	return b.String()
}

// ServiceDetails describes one service and offers the next options
func (r *ReplyBuilder) ServiceDetails(entry catalog.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", entry.Icon, strings.ToUpper(entry.Title))
	fmt.Fprintf(&b, "💰 Precio: %s / %s\n", entry.PriceUSD, entry.PriceMXN)
	fmt.Fprintf(&b, "⏱️ Tiempo: %s\n\n", entry.EstimatedTime)
	b.WriteString("✅ Incluye:\n")
	for _, feature := range entry.Features {
		fmt.Fprintf(&b, "• %s\n", feature)
	}
	b.WriteString("• Dominio + Hosting\n")
	b.WriteString("• Diseño responsivo\n")
	b.WriteString("• Seguridad avanzada\n")
	b.WriteString("• Y más...\n\n")
	b.WriteString("¿Te interesa este servicio?\n")
	b.WriteString(serviceDetailsOptions)
	return b.String()
}

// ServiceMoreInfo gives the long description of a service
func (r *ReplyBuilder) ServiceMoreInfo(entry catalog.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ℹ️ MÁS INFORMACIÓN - %s\n\n", strings.ToUpper(entry.Title))
	fmt.Fprintf(&b, "%s\n\n", entry.Description)
	b.WriteString("Características principales:\n")
	for _, feature := range entry.Features {
		fmt.Fprintf(&b, "✅ %s\n", feature)
	}
	b.WriteString("\n¿Te interesa solicitar una cotización?\n")
	b.WriteString("1️⃣ Sí, solicitar cotización\n")
	b.WriteString("2️⃣ Ver otro servicio")
	return b.String()
}

// PricesTable lists prices and times for every service
func (r *ReplyBuilder) PricesTable() string {
	var b strings.Builder
	b.WriteString("💰 LISTA DE PRECIOS:\n\n")
	for _, entry := range r.catalog.Entries() {
		fmt.Fprintf(&b, "%s %s\n", entry.Icon, entry.Title)
		fmt.Fprintf(&b, "%s / %s\n", entry.PriceUSD, entry.PriceMXN)
		fmt.Fprintf(&b, "⏱️ %s\n\n", entry.EstimatedTime)
	}
	b.WriteString("Escribe \"cotizar\" para solicitar una cotización")
	return b.String()
}

// ContactInfo shows how to reach the company
func (r *ReplyBuilder) ContactInfo() string {
	return "📞 CONTACTO:\n\n" +
		fmt.Sprintf("📧 Email: %s\n", r.company.ContactEmail) +
		"📱 WhatsApp: Este chat\n" +
		fmt.Sprintf("🌐 Web: %s/\n\n", r.company.Website) +
		"Escribe \"cotizar\" para solicitar una cotización"
}

// PortfolioInfo links to previous work
func (r *ReplyBuilder) PortfolioInfo() string {
	return "🎨 PORTAFOLIO:\n\n" +
		"Visita nuestros trabajos anteriores:\n" +
		fmt.Sprintf("👉 %s/portafolio\n\n", r.company.Website) +
		"O escribe \"cotizar\" para tu proyecto"
}

// Help lists the commands the bot understands
func (r *ReplyBuilder) Help() string {
	return "🤖 COMANDOS DISPONIBLES:\n\n" +
		"• \"cotizar\" - Solicitar cotización\n" +
		"• \"precios\" - Ver lista de precios\n" +
		"• \"contacto\" - Información de contacto\n" +
		"• \"portafolio\" - Ver trabajos anteriores\n" +
		"• \"menu\" - Volver al menú principal\n" +
		"• \"salir\" - Finalizar conversación\n\n" +
		"¡Empecemos! Escribe \"cotizar\" 🚀"
}

// QuoteSummary recaps the collected data before confirmation
func (r *ReplyBuilder) QuoteSummary(session Session, entry catalog.Entry) string {
	field := func(key string) string {
		if v := session.Data[key]; v != "" {
			return v
		}
		return notSpecified
	}

	var b strings.Builder
	b.WriteString("📋 RESUMEN DE TU COTIZACIÓN:\n\n")
	fmt.Fprintf(&b, "Servicio: %s\n", entry.Title)
	fmt.Fprintf(&b, "Cliente: %s\n", field(FieldName))
	fmt.Fprintf(&b, "Empresa: %s\n", field(FieldCompany))
	fmt.Fprintf(&b, "Email: %s\n", field(FieldEmail))
	fmt.Fprintf(&b, "Teléfono: %s\n", field(FieldPhone))
	fmt.Fprintf(&b, "Descripción: \"%s\"\n\n", field(FieldDescription))
	fmt.Fprintf(&b, "💰 Precio: %s / %s\n", entry.PriceUSD, entry.PriceMXN)
	fmt.Fprintf(&b, "⏱️ Tiempo estimado: %s\n\n", entry.EstimatedTime)
	b.WriteString("¿Confirmas esta información?\n")
	b.WriteString(summaryOptions)
	return b.String()
}

// QuotationSuccess confirms a stored quotation
func (r *ReplyBuilder) QuotationSuccess(id uint, email string) string {
	return "✅ ¡Cotización enviada exitosamente!\n\n" +
		fmt.Sprintf("📋 Número de cotización: #%d\n", id) +
		fmt.Sprintf("Te contactaremos en menos de 24 horas al email: %s\n\n", email) +
		"🚀 Mientras tanto:\n" +
		fmt.Sprintf("• Revisa nuestro portafolio: %s/portafolio\n", r.company.Website) +
		fmt.Sprintf("• Síguenos en redes: @%s\n\n", r.company.Social) +
		"¿Qué te gustaría hacer ahora?\n" +
		quoteSentOptions
}

// ValidationFailed lists the problems found at submission
func (r *ReplyBuilder) ValidationFailed(problems []string) string {
	return "❌ Error en los datos:\n" + strings.Join(problems, "\n") +
		"\n\nEscribe \"menu\" para empezar de nuevo."
}

// QuotationError apologises for a submission that could not be stored
func (r *ReplyBuilder) QuotationError() string {
	return "⚠️ Hubo un problema al procesar tu cotización. " +
		"Por favor, intenta nuevamente o contáctanos directamente.\n\n" +
		fmt.Sprintf("📧 Email: %s", r.company.ContactEmail)
}

// Farewell closes the conversation after a quotation
func (r *ReplyBuilder) Farewell() string {
	return "¡Gracias por contactarnos! 🙏\n\n" +
		"Ha sido un placer ayudarte con tu proyecto web. " +
		"Nuestro equipo revisará tu solicitud y te contactaremos pronto.\n\n" +
		"💼 Si tienes alguna pregunta urgente:\n" +
		fmt.Sprintf("📧 Email: %s\n", r.company.ContactEmail) +
		"📱 WhatsApp: Siempre disponible aquí\n\n" +
		"¡Que tengas un excelente día! ✨\n\n" +
		"---\n" +
		"Escribe \"hola\" cuando quieras volver a chatear 😊"
}

// Exit answers the exit commands
func (r *ReplyBuilder) Exit() string {
	return "¡Gracias por usar nuestro servicio de cotizaciones! 🙏\n\n" +
		"Esperamos poder ayudarte pronto con tu proyecto web.\n\n" +
		"📞 Recuerda que siempre puedes contactarnos:\n" +
		fmt.Sprintf("📧 Email: %s\n", r.company.ContactEmail) +
		"📱 WhatsApp: Aquí mismo\n\n" +
		"¡Hasta pronto! ✨\n\n" +
		"---\n" +
		"Escribe \"hola\" para volver a empezar 😊"
}

// ServiceNotFound is shown when the selected service left the catalog
func (r *ReplyBuilder) ServiceNotFound() string {
	return "Error: Servicio no encontrado"
}

// Default is the fallback for unrecognised input in the initial step
func (r *ReplyBuilder) Default() string {
	return "¡Bienvenido! 👋\n\n" +
		"Soy tu asistente para cotizaciones de sitios web.\n\n" +
		"Escribe \"cotizar\" para empezar o \"ayuda\" para ver todas las opciones."
}

// InvalidOption names the accepted choices and repeats the options
func (r *ReplyBuilder) InvalidOption(validOptions, options string) string {
	return fmt.Sprintf("Por favor, selecciona una opción válida: %s", validOptions) + "\n\n" + options
}

// InvalidMenuOption covers the current catalog range, e.g. (1-6)
func (r *ReplyBuilder) InvalidMenuOption() string {
	return r.InvalidOption(fmt.Sprintf("(1-%d)", r.catalog.Len()), r.MainMenu())
}
