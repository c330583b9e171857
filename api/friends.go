package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskzen-api/domain"
)

func searchUsers(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		results, err := friends.SearchUsers(c.Request().Context(), principal(c).ID, c.QueryParam("email"))
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, results)
	}
}

type sendFriendRequestBody struct {
	RecipientID string `json:"recipientId"`
}

func sendFriendRequest(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendFriendRequestBody
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		created, err := friends.SendRequest(c.Request().Context(), principal(c).ID, req.RecipientID)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusCreated, created)
	}
}

func listFriendRequests(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		dir := domain.ParseRequestDirection(c.QueryParam("type"))
		requests, err := friends.Requests(c.Request().Context(), principal(c).ID, dir)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, requests)
	}
}

func acceptFriendRequest(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		accepted, err := friends.Accept(c.Request().Context(), principal(c).ID, id)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, accepted)
	}
}

func rejectFriendRequest(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		if err := friends.Reject(c.Request().Context(), principal(c).ID, id); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listFriends(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := friends.Friends(c.Request().Context(), principal(c).ID)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, list)
	}
}

func removeFriend(friends FriendGraph) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		if err := friends.Remove(c.Request().Context(), principal(c).ID, id); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
