package himalaya

import (
	"context"
)

const opDeleteMessage = "delete message"

// DeleteMessage moves a message to the trash folder. When the account has
// no trash folder, the message is flagged deleted in place instead. The
// fallback runs at most once and the move is never retried.
func (c *Client) DeleteMessage(ctx context.Context, folder, id string) error {
	_, err := runAttempts(ctx, c.logger, opDeleteMessage, []attempt[struct{}]{
		{
			name: "move to trash",
			run: func(ctx context.Context) (struct{}, error) {
				_, err := c.run(ctx, request{
					op:   opDeleteMessage,
					args: []string{"message", "delete", "--folder", folder, id},
				})
				return struct{}{}, err
			},
		},
		{
			name: "flag deleted",
			when: func(prev error) bool { return isMissingTrash(DiagnosticOf(prev)) },
			run: func(ctx context.Context) (struct{}, error) {
				c.logger.Warn("no trash folder, flagging message deleted", "folder", folder, "id", id)
				_, err := c.run(ctx, request{
					op:   opDeleteMessage,
					args: []string{"flag", "add", "--folder", folder, id, "deleted"},
				})
				if err != nil {
					return struct{}{}, &ClientError{
						Op:   opDeleteMessage,
						Kind: KindRejected,
						Diagnostic: "Failed to delete email: Trash folder is missing and deleted-flag " +
							"fallback also failed. Error: " + DiagnosticOf(err),
						Err: err,
					}
				}
				return struct{}{}, nil
			},
		},
	})
	return err
}
