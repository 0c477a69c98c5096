package storage

import (
	"context"
	"database/sql"
	"errors"
)

// AddMember registers a user on a chat's roster. It reports false when
// the user was already registered; registration is otherwise idempotent.
func (s *Store) AddMember(ctx context.Context, chatID, userID int64) (bool, error) {
	exists, err := s.HasMember(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats_users(chat_id, user_id) VALUES(?,?)`, chatID, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) HasMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chats_users WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Members returns the roster of a chat.
func (s *Store) Members(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM chats_users WHERE chat_id = ? ORDER BY ID`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Chats returns every chat that has at least one registered member.
func (s *Store) Chats(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT chat_id FROM chats_users ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
