package models

type Player struct {
	Identifier string
	Name       string
	DiscordID  *string
}
