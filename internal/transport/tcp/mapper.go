package tcp

import (
	"github.com/samber/lo"

	"github.com/rozmowa/relay-server/internal/core"
	"github.com/rozmowa/relay-server/internal/proto"
)

// outboundFromEvent maps a core event to its wire frame. Attachments ride
// in message frames with file fields set, matching what the GUI client
// already parses.
func outboundFromEvent(ev *core.Event) any {
	switch ev.Kind {
	case core.EventMessage:
		return proto.MessageFrame{
			Type:     proto.TypeMessage,
			Room:     ev.Message.Room,
			Sender:   ev.Message.Sender,
			Message:  ev.Message.Text,
			FileName: ev.Message.FileName,
			FileData: ev.Message.FileData,
		}
	case core.EventRooms:
		return proto.RoomsFrame{
			Type:  proto.TypeRooms,
			Rooms: roomInfos(ev.Rooms),
		}
	case core.EventUsers:
		users := ev.Users
		if users == nil {
			users = []string{}
		}
		return proto.UsersFrame{
			Type:  proto.TypeUsers,
			Room:  ev.Room,
			Users: users,
		}
	case core.EventSuccess:
		return proto.StatusFrame{Type: proto.TypeSuccess, Message: ev.Info}
	case core.EventError:
		return proto.StatusFrame{Type: proto.TypeError, Message: ev.Info}
	}
	return proto.StatusFrame{Type: proto.TypeError, Message: "internal error"}
}

func roomInfos(rooms []core.RoomInfo) []proto.RoomInfo {
	return lo.Map(rooms, func(r core.RoomInfo, _ int) proto.RoomInfo {
		return proto.RoomInfo{Room: r.Name, Users: r.Users}
	})
}
