package service

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var IdentityRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var PostIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var VideoIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_-]{1,64}$")),
}

var VideoTitleRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 200),
}

var RoomNameRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 100),
}

var ChatMessageRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2000),
}

var CurrentTimeRule = []validation.Rule{
	validation.Min(0.0),
}

var MessageTextRule = []validation.Rule{
	validation.Length(0, 4000),
}

var MediaUrlRule = []validation.Rule{
	is.URL,
}

var MessageIdRule = []validation.Rule{
	validation.Required,
}

var InvitedUsersRule = []validation.Rule{
	validation.Each(IdentityRule...),
}
