package convert

import (
	"fmt"

	"github.com/sokinpui/listdiff/model"
)

// Convert pairs every flat position in changes with section and groups the
// resulting addresses by operation kind. Categories without members stay nil.
func Convert[T any](changes []model.Change[T], section int) model.Groups {
	var groups model.Groups

	for _, change := range changes {
		switch c := change.(type) {
		case model.Delete[T]:
			groups.Deletes = append(groups.Deletes, model.Address{Section: section, Position: c.Index})
		case model.Insert[T]:
			groups.Inserts = append(groups.Inserts, model.Address{Section: section, Position: c.Index})
		case model.Move[T]:
			groups.Moves = append(groups.Moves, model.AddressMove{
				From: model.Address{Section: section, Position: c.FromIndex},
				To:   model.Address{Section: section, Position: c.ToIndex},
			})
		case model.Replace[T]:
			groups.Replaces = append(groups.Replaces, model.Address{Section: section, Position: c.Index})
		default:
			panic(fmt.Sprintf("convert: unknown change %T", change))
		}
	}

	return groups
}
