package actions

import (
	"fmt"
	"strings"

	"mud-server/internal/engine/handlers"
	"mud-server/pkg/api"
)

// HandleSay - реплика для всех в комнате.
func HandleSay(ctx handlers.Context, p api.SayPayload) (handlers.Result, error) {
	text := strings.TrimSpace(p.Text)
	room := ctx.Actor.Environment()
	if room == nil {
		return handlers.Reply("Вы бормочете в пустоту.", "SPEECH"), nil
	}

	ctx.World.BroadcastText(room, fmt.Sprintf("%s говорит: «%s»", ctx.Actor.Name(), text), "SPEECH", ctx.Actor)
	return handlers.Reply(fmt.Sprintf("Вы говорите: «%s»", text), "SPEECH"), nil
}
