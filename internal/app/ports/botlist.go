package ports

type BotListPort interface {
	IsMember(username string) bool
}
